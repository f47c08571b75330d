package types

import "time"

// Product is a catalog entry owned by exactly one user.
type Product struct {
	// ID is the opaque unique identifier of the product.
	ID string `json:"id" db:"id"`

	// Name is the display name of the product.
	Name string `json:"name" db:"name"`

	// Description is free-form descriptive text.
	Description string `json:"description" db:"description"`

	// Image references the product image, typically a storage object key.
	Image string `json:"image" db:"image"`

	// Price is the non-negative unit price.
	Price float64 `json:"price" db:"price"`

	// Amount is the non-negative stock quantity.
	Amount int `json:"amount" db:"amount"`

	// OwnerID is the id of the owning user. Set at creation, never reassigned.
	OwnerID string `json:"userId" db:"owner_id"`

	// CreatedAt is the timestamp when the product was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the product.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProductPatch carries a partial update; nil fields are left unchanged.
type ProductPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Image       *string  `json:"image"`
	Price       *float64 `json:"price"`
	Amount      *int     `json:"amount"`
}
