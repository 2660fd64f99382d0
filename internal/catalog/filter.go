package catalog

import (
	"fmt"
	"strings"

	"github.com/rafaelsava/S2Market/internal/domain"
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

func ParseSort(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "":
		return SortNewest, nil
	case SortNewest, SortPriceAsc, SortPriceDesc:
		return SortOrder(s), nil
	}
	return "", &domain.DecodeError{Field: "sort", Value: s}
}

// Filter narrows a product listing. Zero values match everything.
type Filter struct {
	Query    string
	Category domain.Category
	SellerID string
	Sort     SortOrder
}

const productColumns = `id, seller_id, title, description, category, image, price, stock, created_at`

// likeEscaper makes a search term match literally inside ILIKE, whose
// default escape character is a backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildListQuery(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, likeEscaper.Replace(q))
		conds = append(conds, fmt.Sprintf("title ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.SellerID != "" {
		args = append(args, f.SellerID)
		conds = append(conds, fmt.Sprintf("seller_id = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + productColumns + " FROM products")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	switch f.Sort {
	case SortPriceAsc:
		b.WriteString(" ORDER BY price ASC, created_at DESC")
	case SortPriceDesc:
		b.WriteString(" ORDER BY price DESC, created_at DESC")
	default:
		b.WriteString(" ORDER BY created_at DESC")
	}

	return b.String(), args
}
