package model

import "github.com/shopspring/decimal"

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

// ProductInput is the create/update form. It is sent as multipart.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image       *ImageFile
}

// ImageFile is an optional upload attached to a ProductInput.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
