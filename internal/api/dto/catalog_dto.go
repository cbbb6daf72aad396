package dto

import "github.com/spec-kit/catalog-gate/internal/domain"

// HomeResponse is the home screen: who is signed in and a page of products.
type HomeResponse struct {
	Subject  string           `json:"subject"`
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

// NewHomeResponse builds the home screen payload.
func NewHomeResponse(subject string, page *domain.ProductPage) HomeResponse {
	products := page.Products
	if products == nil {
		products = []domain.Product{}
	}
	return HomeResponse{
		Subject:  subject,
		Products: products,
		Total:    page.Total,
		Skip:     page.Skip,
		Limit:    page.Limit,
	}
}
