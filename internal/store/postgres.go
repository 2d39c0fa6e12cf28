package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/internal/domain"
)

// PostgresStore keeps state in Postgres. Uniqueness of orders.payment_id and
// the single stats row updated inside the order transaction carry the
// ledger guarantees.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres wraps an open pool. The schema is expected to be migrated.
func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type productRow struct {
	ID              string    `db:"id"`
	Name            string    `db:"name"`
	Description     string    `db:"description"`
	Price           int64     `db:"price"`
	MaterialType    string    `db:"material_type"`
	MaterialContent string    `db:"material_content"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Material:    domain.Material{Kind: domain.MaterialKind(r.MaterialType), Content: r.MaterialContent},
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

const productColumns = `id, name, description, price, material_type, material_content, created_at`

const orderColumns = `id, user_id, display_name, product_id, product_name, price, payment_id, created_at`

// PutProduct implements Store.
func (s *PostgresStore) PutProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	const q = `
INSERT INTO products (` + productColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    material_type = EXCLUDED.material_type,
    material_content = EXCLUDED.material_content`
	_, err := s.db.ExecContext(ctx, q,
		p.ID, p.Name, p.Description, p.Price, string(p.Material.Kind), p.Material.Content, p.CreatedAt)
	if err != nil {
		return domain.Product{}, fmt.Errorf("put product: %w", err)
	}
	logger.Debug(ctx, logger.CompStore, "product.put",
		slog.String("product_id", p.ID),
		slog.Int64("price", p.Price),
	)
	return p, nil
}

// GetProduct implements Store.
func (s *PostgresStore) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.NotFoundf("product %q not found", id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return row.toDomain(), nil
}

// ListProducts implements Store.
func (s *PostgresStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+productColumns+` FROM products ORDER BY position`); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.toDomain())
	}
	return products, nil
}

// DeleteProduct implements Store.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, _ := res.RowsAffected()
	logger.Debug(ctx, logger.CompStore, "product.delete",
		slog.String("product_id", id),
		slog.Bool("found", n > 0),
	)
	return nil
}

// RecordOrder implements Store. A concurrent insert of the same payment id
// blocks on the unique index until the first transaction commits and then
// falls through to the duplicate branch.
func (s *PostgresStore) RecordOrder(ctx context.Context, req OrderRequest) (order domain.Order, created bool, err error) {
	if err := req.validate(); err != nil {
		return domain.Order{}, false, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("record order: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	o := newOrder(req)
	err = tx.GetContext(ctx, &order, `
INSERT INTO orders (user_id, display_name, product_id, product_name, price, payment_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (payment_id) DO NOTHING
RETURNING `+orderColumns,
		o.UserID, o.DisplayName, o.ProductID, o.ProductName, o.Price, o.PaymentID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE payment_id = $1`, req.PaymentID)
		if err != nil {
			return domain.Order{}, false, fmt.Errorf("record order: load duplicate: %w", err)
		}
	case err != nil:
		return domain.Order{}, false, fmt.Errorf("record order: insert: %w", err)
	default:
		created = true
		_, err = tx.ExecContext(ctx, `
UPDATE shop_stats
SET total_orders = total_orders + 1, total_revenue = total_revenue + $1
WHERE id = 1`, order.Price)
		if err != nil {
			return domain.Order{}, false, fmt.Errorf("record order: stats: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, false, fmt.Errorf("record order: commit: %w", err)
	}
	order.CreatedAt = order.CreatedAt.UTC()
	logger.Debug(ctx, logger.CompStore, "order.record",
		slog.Uint64("order_id", order.ID),
		slog.String("payment_id", req.PaymentID),
		slog.Bool("created", created),
	)
	return order, created, nil
}

// ListOrders implements Store.
func (s *PostgresStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders := []domain.Order{}
	if err := s.db.SelectContext(ctx, &orders, `SELECT `+orderColumns+` FROM orders ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetStats implements Store.
func (s *PostgresStore) GetStats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.GetContext(ctx, &stats, `SELECT total_orders, total_revenue FROM shop_stats WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stats{}, nil
	}
	if err != nil {
		return domain.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

type welcomeRow struct {
	Text      string         `db:"text"`
	MediaType sql.NullString `db:"media_type"`
	MediaRef  sql.NullString `db:"media_ref"`
}

// GetWelcome implements Store.
func (s *PostgresStore) GetWelcome(ctx context.Context) (domain.Welcome, error) {
	var row welcomeRow
	err := s.db.GetContext(ctx, &row, `SELECT text, media_type, media_ref FROM welcome WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultWelcome(), nil
	}
	if err != nil {
		return domain.Welcome{}, fmt.Errorf("get welcome: %w", err)
	}
	w := domain.Welcome{Text: row.Text}
	if row.MediaType.Valid && row.MediaRef.Valid {
		w.Media = &domain.WelcomeMedia{Kind: domain.WelcomeMediaKind(row.MediaType.String), Ref: row.MediaRef.String}
	}
	return w, nil
}

// SetWelcome implements Store.
func (s *PostgresStore) SetWelcome(ctx context.Context, w domain.Welcome) error {
	if err := w.Validate(); err != nil {
		return err
	}
	var mediaType, mediaRef sql.NullString
	if w.Media != nil {
		mediaType = sql.NullString{String: string(w.Media.Kind), Valid: true}
		mediaRef = sql.NullString{String: w.Media.Ref, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO welcome (id, text, media_type, media_ref, updated_at)
VALUES (1, $1, $2, $3, now())
ON CONFLICT (id) DO UPDATE SET
    text = EXCLUDED.text,
    media_type = EXCLUDED.media_type,
    media_ref = EXCLUDED.media_ref,
    updated_at = EXCLUDED.updated_at`, w.Text, mediaType, mediaRef)
	if err != nil {
		return fmt.Errorf("set welcome: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
