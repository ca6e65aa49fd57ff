package domain

import "shelfmatch/internal/adapters/source"

// Info is the public descriptor of one configured backend
type Info struct {
	Name        string `json:"name"        example:"demo"`
	Description string `json:"description" example:"Embedded demo catalog"`
	Language    string `json:"language"    example:"es"`
	Adapter     string `json:"adapter"     example:"mock"`
}

// ProductsResponse is the live catalog listing for one backend
type ProductsResponse struct {
	Backend  string                   `json:"backend"  example:"demo"`
	Products []source.ExternalProduct `json:"data"`
	Count    int                      `json:"count"    example:"15"`
}

// ProductURLResponse carries the external deep link for one product.
// URL is omitted when the backend cannot build one
type ProductURLResponse struct {
	Backend   string `json:"backend"    example:"demo"`
	ProductID string `json:"product_id" example:"mx-0101"`
	URL       string `json:"url,omitempty" example:"https://example-inventory.demo/products/mx-0101"`
}
