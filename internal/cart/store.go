package cart

import (
	"errors"
	"sync"

	"github.com/rafaelsava/S2Market/internal/domain"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Store is one buyer's pending selection. Lines are unique by product and
// kept in insertion order; a line never holds a quantity below 1.
type Store struct {
	mu       sync.Mutex
	lines    []domain.CartLine
	onChange func([]domain.CartLine)
}

func NewStore(lines ...domain.CartLine) *Store {
	s := &Store{}
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i := s.index(l.ProductID); i >= 0 {
			s.lines[i].Quantity += l.Quantity
			continue
		}
		s.lines = append(s.lines, l)
	}
	return s
}

// Add appends a line for productID or grows the existing one by quantity.
// Stock is not checked.
func (s *Store) Add(productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(productID); i >= 0 {
		s.lines[i].Quantity += quantity
	} else {
		s.lines = append(s.lines, domain.CartLine{ProductID: productID, Quantity: quantity})
	}
	s.changed()
	return nil
}

func (s *Store) Increment(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(productID)
	if i < 0 {
		return
	}
	s.lines[i].Quantity++
	s.changed()
}

// Decrement lowers the line by one. A line that would reach zero is removed.
func (s *Store) Decrement(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(productID)
	if i < 0 {
		return
	}
	s.lines[i].Quantity--

	kept := s.lines[:0]
	for _, l := range s.lines {
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	s.changed()
}

func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(productID)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.changed()
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Checkout hands fn a copy of the lines and holds the store until fn
// returns. The store is cleared only when fn succeeds, so no caller sees the
// order persisted with the cart still full or the cart emptied without an
// order.
func (s *Store) Checkout(fn func(lines []domain.CartLine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.snapshot()); err != nil {
		return err
	}
	s.clear()
	return nil
}

func (s *Store) clear() {
	if len(s.lines) == 0 {
		return
	}
	s.lines = nil
	s.changed()
}

func (s *Store) index(productID string) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) snapshot() []domain.CartLine {
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}
