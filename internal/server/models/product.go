package models

import "time"

// Product is a listing offered for sale. SellerID never changes after
// creation.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	Images      []string  `json:"images"`
	SellerID    string    `json:"sellerId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductInput holds the client-editable listing fields.
type ProductInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Images      []string `json:"images"`
}

// Sort orders accepted by ProductFilter.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// ProductFilter selects a page of listings. Zero values mean "no constraint"
// except Status, which the service defaults to available.
type ProductFilter struct {
	Query     string
	Category  string
	Condition string
	SellerID  string
	Status    string
	MinPrice  *float64
	MaxPrice  *float64
	Sort      string
	Page      int
	Limit     int

	// ViewerID, when set, hides products the viewer blocked and products of
	// sellers the viewer blocked.
	ViewerID string

	// IDs restricts the result to these products (used with a search index).
	IDs []string
}

// ProductPage is one page of listings plus the total match count.
type ProductPage struct {
	Items []*Product `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}
