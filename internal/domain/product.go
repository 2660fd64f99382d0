package domain

import "time"

type Category string

const (
	CategoryTechnology Category = "Tecnología"
	CategoryBooks      Category = "Libros"
	CategoryClothing   Category = "Ropa"
	CategoryHome       Category = "Hogar"
	CategoryStationery Category = "Papelería"
	CategorySports     Category = "Deportes"
	CategoryArt        Category = "Arte"
	CategoryMusic      Category = "Musica"
	CategoryFood       Category = "Alimentos"
	CategoryOther      Category = "Otros"
)

var categories = []Category{
	CategoryTechnology,
	CategoryBooks,
	CategoryClothing,
	CategoryHome,
	CategoryStationery,
	CategorySports,
	CategoryArt,
	CategoryMusic,
	CategoryFood,
	CategoryOther,
}

func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", &DecodeError{Field: "category", Value: s}
}

// Product prices are integers in the smallest currency unit (COP).
type Product struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Image       string    `json:"image"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
}

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
