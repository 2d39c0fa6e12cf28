package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/internal/domain"
)

var (
	bucketCatalog      = []byte("catalog")
	bucketCatalogIndex = []byte("catalog_index")
	bucketOrders       = []byte("orders")
	bucketPayments     = []byte("payments")
	bucketMeta         = []byte("meta")

	keyStats   = []byte("stats")
	keyWelcome = []byte("welcome")
)

// BoltStore keeps all state in a single bbolt file. Catalog and order keys
// are big-endian sequence numbers, so cursor order equals insertion order.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

var _ Store = (*BoltStore)(nil)

// OpenBolt opens or creates the database file and its buckets.
func OpenBolt(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCatalog, bucketCatalogIndex, bucketOrders, bucketPayments, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}
	logger.Info(context.Background(), logger.CompStore, "store.open",
		slog.String("driver", DriverBolt),
		slog.String("path", path),
	)
	return &BoltStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// PutProduct implements Store.
func (s *BoltStore) PutProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	replaced := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketCatalogIndex)
		catalog := tx.Bucket(bucketCatalog)

		var key []byte
		if existing := index.Get([]byte(p.ID)); existing != nil {
			key = append([]byte(nil), existing...)
			replaced = true
		} else {
			seq, err := catalog.NextSequence()
			if err != nil {
				return err
			}
			key = seqKey(seq)
			if err := index.Put([]byte(p.ID), key); err != nil {
				return err
			}
		}
		return putJSON(catalog, key, p)
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("put product: %w", err)
	}
	logger.Debug(ctx, logger.CompStore, "product.put",
		slog.String("product_id", p.ID),
		slog.Int64("price", p.Price),
		slog.Bool("replaced", replaced),
	)
	return p, nil
}

// GetProduct implements Store.
func (s *BoltStore) GetProduct(_ context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(bucketCatalogIndex).Get([]byte(id))
		if key == nil {
			return domain.NotFoundf("product %q not found", id)
		}
		data := tx.Bucket(bucketCatalog).Get(key)
		if data == nil {
			return domain.NotFoundf("product %q not found", id)
		}
		return json.Unmarshal(data, &p)
	})
	return p, err
}

// ListProducts implements Store.
func (s *BoltStore) ListProducts(_ context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCatalog).ForEach(func(_, v []byte) error {
			var p domain.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// DeleteProduct implements Store.
func (s *BoltStore) DeleteProduct(ctx context.Context, id string) error {
	deleted := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketCatalogIndex)
		key := index.Get([]byte(id))
		if key == nil {
			return nil
		}
		key = append([]byte(nil), key...)
		if err := tx.Bucket(bucketCatalog).Delete(key); err != nil {
			return err
		}
		deleted = true
		return index.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	logger.Debug(ctx, logger.CompStore, "product.delete",
		slog.String("product_id", id),
		slog.Bool("found", deleted),
	)
	return nil
}

// RecordOrder implements Store. The payment index, the order and the stats
// row change in one bbolt transaction.
func (s *BoltStore) RecordOrder(ctx context.Context, req OrderRequest) (domain.Order, bool, error) {
	if err := req.validate(); err != nil {
		return domain.Order{}, false, err
	}

	order := newOrder(req)
	created := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		payments := tx.Bucket(bucketPayments)
		orders := tx.Bucket(bucketOrders)

		if key := payments.Get([]byte(req.PaymentID)); key != nil {
			data := orders.Get(key)
			if data == nil {
				return fmt.Errorf("payment %q indexes a missing order", req.PaymentID)
			}
			return json.Unmarshal(data, &order)
		}

		seq, err := orders.NextSequence()
		if err != nil {
			return err
		}
		order.ID = seq
		order.CreatedAt = s.now()
		key := seqKey(seq)
		if err := putJSON(orders, key, order); err != nil {
			return err
		}
		if err := payments.Put([]byte(req.PaymentID), key); err != nil {
			return err
		}

		meta := tx.Bucket(bucketMeta)
		stats, err := readStats(meta)
		if err != nil {
			return err
		}
		stats.TotalOrders++
		stats.TotalRevenue += order.Price
		created = true
		return putJSON(meta, keyStats, stats)
	})
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("record order: %w", err)
	}
	logger.Debug(ctx, logger.CompStore, "order.record",
		slog.Uint64("order_id", order.ID),
		slog.String("payment_id", req.PaymentID),
		slog.Bool("created", created),
	)
	return order, created, nil
}

func readStats(meta *bolt.Bucket) (domain.Stats, error) {
	var stats domain.Stats
	data := meta.Get(keyStats)
	if data == nil {
		return stats, nil
	}
	err := json.Unmarshal(data, &stats)
	return stats, err
}

// ListOrders implements Store.
func (s *BoltStore) ListOrders(_ context.Context) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketOrders).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var o domain.Order
			if err := json.Unmarshal(v, &o); err != nil {
				return err
			}
			orders = append(orders, o)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetStats implements Store.
func (s *BoltStore) GetStats(_ context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		stats, err = readStats(tx.Bucket(bucketMeta))
		return err
	})
	return stats, err
}

// GetWelcome implements Store.
func (s *BoltStore) GetWelcome(_ context.Context) (domain.Welcome, error) {
	w := domain.DefaultWelcome()
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyWelcome)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &w)
	})
	return w, err
}

// SetWelcome implements Store.
func (s *BoltStore) SetWelcome(ctx context.Context, w domain.Welcome) error {
	if err := w.Validate(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(bucketMeta), keyWelcome, w)
	})
	if err != nil {
		return fmt.Errorf("set welcome: %w", err)
	}
	logger.Debug(ctx, logger.CompStore, "welcome.set", slog.Bool("media", w.Media != nil))
	return nil
}

// Ping implements Store.
func (s *BoltStore) Ping(_ context.Context) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.View(func(*bolt.Tx) error { return nil })
}

// Close implements Store.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
