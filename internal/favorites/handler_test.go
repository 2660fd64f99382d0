package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelsava/S2Market/internal/domain"
)

// memoryStore keeps favorites in insertion order per user.
type memoryStore struct {
	products map[string]domain.Product
	favs     map[string][]string
	err      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products: map[string]domain.Product{
			"p1": {ID: "p1", Title: "Calculadora"},
			"p2": {ID: "p2", Title: "Cuaderno"},
		},
		favs: map[string][]string{},
	}
}

func (m *memoryStore) index(userID, productID string) int {
	for i, id := range m.favs[userID] {
		if id == productID {
			return i
		}
	}
	return -1
}

func (m *memoryStore) Add(_ context.Context, userID, productID string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[productID]; !ok {
		return ErrProductNotFound
	}
	if m.index(userID, productID) < 0 {
		m.favs[userID] = append(m.favs[userID], productID)
	}
	return nil
}

func (m *memoryStore) Remove(_ context.Context, userID, productID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	i := m.index(userID, productID)
	if i < 0 {
		return false, nil
	}
	m.favs[userID] = append(m.favs[userID][:i], m.favs[userID][i+1:]...)
	return true, nil
}

func (m *memoryStore) Toggle(ctx context.Context, userID, productID string) (bool, error) {
	removed, err := m.Remove(ctx, userID, productID)
	if err != nil || removed {
		return false, err
	}
	return true, m.Add(ctx, userID, productID)
}

func (m *memoryStore) Contains(_ context.Context, userID, productID string) (bool, error) {
	return m.index(userID, productID) >= 0, m.err
}

func (m *memoryStore) List(_ context.Context, userID string) ([]domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Product
	for i := len(m.favs[userID]) - 1; i >= 0; i-- {
		out = append(out, m.products[m.favs[userID][i]])
	}
	return out, nil
}

func newTestMux(store Store) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeFavorite(t *testing.T, rec *httptest.ResponseRecorder) favoriteResponse {
	t.Helper()
	var resp favoriteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandler_AddListRemove(t *testing.T) {
	mux := newTestMux(newMemoryStore())

	rec := do(mux, http.MethodPut, "/users/u1/favorites/p1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, favoriteResponse{ProductID: "p1", Favorite: true}, decodeFavorite(t, rec))

	do(mux, http.MethodPut, "/users/u1/favorites/p2")
	do(mux, http.MethodPut, "/users/u1/favorites/p1")

	rec = do(mux, http.MethodGet, "/users/u1/favorites")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&products))
	require.Len(t, products, 2)
	assert.Equal(t, "p2", products[0].ID)
	assert.Equal(t, "p1", products[1].ID)

	rec = do(mux, http.MethodDelete, "/users/u1/favorites/p1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeFavorite(t, rec).Favorite)

	rec = do(mux, http.MethodGet, "/users/u1/favorites/p1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeFavorite(t, rec).Favorite)

	rec = do(mux, http.MethodDelete, "/users/u1/favorites/p1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Toggle(t *testing.T) {
	mux := newTestMux(newMemoryStore())

	rec := do(mux, http.MethodPost, "/users/u1/favorites/p2/toggle")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeFavorite(t, rec).Favorite)

	rec = do(mux, http.MethodGet, "/users/u1/favorites/p2")
	assert.True(t, decodeFavorite(t, rec).Favorite)

	rec = do(mux, http.MethodGet, "/users/u2/favorites/p2")
	assert.False(t, decodeFavorite(t, rec).Favorite)

	rec = do(mux, http.MethodPost, "/users/u1/favorites/p2/toggle")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeFavorite(t, rec).Favorite)
}

func TestHandler_Errors(t *testing.T) {
	t.Run("unknown product", func(t *testing.T) {
		mux := newTestMux(newMemoryStore())
		assert.Equal(t, http.StatusNotFound, do(mux, http.MethodPut, "/users/u1/favorites/ghost").Code)
		assert.Equal(t, http.StatusNotFound, do(mux, http.MethodPost, "/users/u1/favorites/ghost/toggle").Code)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		mux := newTestMux(newMemoryStore())
		rec := do(mux, http.MethodGet, "/users/nobody/favorites")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		store := newMemoryStore()
		store.err = errors.New("db down")
		mux := newTestMux(store)
		assert.Equal(t, http.StatusInternalServerError, do(mux, http.MethodGet, "/users/u1/favorites").Code)
		assert.Equal(t, http.StatusInternalServerError, do(mux, http.MethodPut, "/users/u1/favorites/p1").Code)
	})
}
