// Package store persists the catalog, the order ledger, aggregate stats and
// the welcome message. It is the only writer of that state.
//
// Every mutating call returns after its transaction committed. RecordOrder
// appends the order and bumps Stats in the same transaction and is keyed on
// the payment id, so a replayed payment never produces a second order.
package store

import (
	"context"

	"github.com/m3rciful/starshop/internal/domain"
)

// Driver names accepted by configuration.
const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// OrderRequest describes a purchase to append to the ledger.
type OrderRequest struct {
	UserID      int64
	DisplayName string
	Product     domain.Product
	// PaymentID identifies the payment occurrence and deduplicates replays.
	PaymentID string
}

func (r OrderRequest) validate() error {
	if r.PaymentID == "" {
		return domain.Invalidf("payment id is required")
	}
	if r.Product.ID == "" {
		return domain.Invalidf("product id is required")
	}
	if r.Product.Price <= 0 {
		return domain.Invalidf("order price must be positive")
	}
	return nil
}

// Store is the persistence contract shared by all backends.
type Store interface {
	// PutProduct inserts or fully replaces a product. An empty ID is
	// generated. Replacement keeps the catalog position.
	PutProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	// ListProducts returns the catalog in insertion order.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	// DeleteProduct is a no-op for unknown ids.
	DeleteProduct(ctx context.Context, id string) error

	// RecordOrder reports created=false when the payment id was already
	// recorded and returns the existing order in that case.
	RecordOrder(ctx context.Context, req OrderRequest) (order domain.Order, created bool, err error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetStats(ctx context.Context) (domain.Stats, error)

	GetWelcome(ctx context.Context) (domain.Welcome, error)
	SetWelcome(ctx context.Context, w domain.Welcome) error

	Ping(ctx context.Context) error
	Close() error
}

func newOrder(req OrderRequest) domain.Order {
	return domain.Order{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		ProductID:   req.Product.ID,
		ProductName: req.Product.Name,
		Price:       req.Product.Price,
		PaymentID:   req.PaymentID,
	}
}
