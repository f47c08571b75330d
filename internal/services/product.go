package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/crypto-vantro/apiserver/internal/apperr"
	"github.com/crypto-vantro/apiserver/internal/mq"
	"github.com/crypto-vantro/apiserver/internal/store"
	"github.com/crypto-vantro/apiserver/types"
)

const (
	msgProductNotFound = "Product does not exist."
	msgNotOwner        = "You do not have permission to access this product."
	msgNoProducts      = "You don't have any product."
	msgProductDeleted  = "Product deleted successfully."
)

const (
	eventProductCreated = "product.created"
	eventProductUpdated = "product.updated"
	eventProductDeleted = "product.deleted"
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]types.Product, error)
	Get(ctx context.Context, id string) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	Delete(ctx context.Context, id string) error
}

// ProductService encapsulates catalog use-cases. Mutations enforce
// existence before ownership; only the owner may update or delete.
type ProductService struct {
	repo    ProductRepository
	events  *mq.MQ
	channel string
}

// NewProductService constructs the service. events may be nil, in which case
// no catalog events are published.
func NewProductService(repo ProductRepository, events *mq.MQ, channel string) *ProductService {
	return &ProductService{
		repo:    repo,
		events:  events,
		channel: channel,
	}
}

// Add creates a product owned by ownerID.
func (s *ProductService) Add(ctx context.Context, product types.Product, ownerID string) (types.Product, error) {
	product.OwnerID = ownerID

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return types.Product{}, err
	}
	s.publish(ctx, eventProductCreated, created)
	return created, nil
}

// Update applies a partial patch to a product after checking that it exists
// and belongs to ownerID. The read and the write are independent store calls.
func (s *ProductService) Update(ctx context.Context, ownerID, productID string, patch types.ProductPatch) (types.Product, error) {
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Product{}, apperr.NotFound(msgProductNotFound)
		}
		return types.Product{}, err
	}
	if product.OwnerID != ownerID {
		return types.Product{}, apperr.Forbidden(msgNotOwner)
	}

	applyPatch(&product, patch)

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Product{}, apperr.NotFound(msgProductNotFound)
		}
		return types.Product{}, err
	}
	s.publish(ctx, eventProductUpdated, updated)
	return updated, nil
}

// Delete removes a product after checking existence, then ownership.
// It returns the confirmation message rendered to the client.
func (s *ProductService) Delete(ctx context.Context, ownerID, productID string) (string, error) {
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.NotFound(msgProductNotFound)
		}
		return "", err
	}
	if product.OwnerID != ownerID {
		return "", apperr.Forbidden(msgNotOwner)
	}

	if err := s.repo.Delete(ctx, productID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	s.publish(ctx, eventProductDeleted, product)
	return msgProductDeleted, nil
}

// ListByOwner returns the products owned by ownerID. An owner with no
// products fails with 404.
func (s *ProductService) ListByOwner(ctx context.Context, ownerID string) ([]types.Product, error) {
	products, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, apperr.NotFound(msgNoProducts)
	}
	return products, nil
}

func applyPatch(product *types.Product, patch types.ProductPatch) {
	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Image != nil {
		product.Image = *patch.Image
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Amount != nil {
		product.Amount = *patch.Amount
	}
}

// publish emits a catalog event when a broker is configured. Failures are
// logged and never surfaced to the caller.
func (s *ProductService) publish(ctx context.Context, action string, product types.Product) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(product)
	if err != nil {
		log.Printf("marshal %s event: %v", action, err)
		return
	}
	if _, err := s.events.Publish(ctx, s.channel, payload, map[string]string{"action": action}); err != nil {
		log.Printf("publish %s event: %v", action, err)
	}
}
