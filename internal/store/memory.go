package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crypto-vantro/apiserver/types"
)

// MemoryUserRepository keeps users in a map. It mirrors the behavior of
// UserRepository and backs the unit test suites.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]types.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]types.User)}
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, ErrNotFound
}

func (r *MemoryUserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Status == "" {
		user.Status = types.StatusActive
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepository) UpdateStatus(_ context.Context, id string, status types.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Status = status
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

// MemoryProductRepository keeps products in a map. It mirrors the behavior
// of ProductRepository and backs the unit test suites.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]types.Product
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[string]types.Product)}
}

func (r *MemoryProductRepository) ListByOwner(_ context.Context, ownerID string) ([]types.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := make([]types.Product, 0)
	for _, product := range r.products {
		if product.OwnerID == ownerID {
			owned = append(owned, product)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.Before(owned[j].CreatedAt)
	})
	return owned, nil
}

func (r *MemoryProductRepository) Get(_ context.Context, id string) (types.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return types.Product{}, ErrNotFound
	}
	return product, nil
}

func (r *MemoryProductRepository) Create(_ context.Context, product types.Product) (types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = product
	return product, nil
}

func (r *MemoryProductRepository) Update(_ context.Context, product types.Product) (types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; !ok {
		return types.Product{}, ErrNotFound
	}
	product.UpdatedAt = time.Now()
	r.products[product.ID] = product
	return product, nil
}

func (r *MemoryProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}
