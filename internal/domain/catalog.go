// Package domain holds the storefront entities and the error taxonomy shared
// by the store, payment and routing layers.
package domain

import (
	"strconv"
	"strings"
	"time"
)

// MaterialKind tags the delivered good.
type MaterialKind string

const (
	MaterialText  MaterialKind = "text"
	MaterialFile  MaterialKind = "file"
	MaterialPhoto MaterialKind = "photo"
	MaterialVideo MaterialKind = "video"
)

// Valid reports whether k is a known material kind.
func (k MaterialKind) Valid() bool {
	switch k {
	case MaterialText, MaterialFile, MaterialPhoto, MaterialVideo:
		return true
	}
	return false
}

// Material is the payload delivered after payment. Content holds the text for
// MaterialText and an opaque platform file reference otherwise.
type Material struct {
	Kind    MaterialKind `json:"type"`
	Content string       `json:"content"`
}

// Product is a catalog entry.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Material    Material  `json:"material"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the invariants enforced on every write.
func (p Product) Validate() error {
	if p.Price <= 0 {
		return Invalidf("price must be positive, got %d", p.Price)
	}
	if strings.TrimSpace(p.Name) == "" {
		return Invalidf("product name is required")
	}
	if !p.Material.Kind.Valid() {
		return Invalidf("unsupported material type %q", p.Material.Kind)
	}
	if p.Material.Content == "" {
		return Invalidf("material content is required")
	}
	return nil
}

// ParsePrice parses admin input into a positive star amount.
func ParsePrice(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, WrapError(CodeInvalid, "price is not an integer", err)
	}
	if v <= 0 {
		return 0, Invalidf("price must be positive, got %d", v)
	}
	return v, nil
}

// Order is an immutable ledger entry. ProductName and Price are snapshots
// taken at purchase time.
type Order struct {
	ID          uint64    `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	ProductID   string    `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	Price       int64     `json:"price" db:"price"`
	PaymentID   string    `json:"payment_id" db:"payment_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Stats aggregates the ledger.
type Stats struct {
	TotalOrders  int64 `json:"total_orders" db:"total_orders"`
	TotalRevenue int64 `json:"total_revenue" db:"total_revenue"`
}

// WelcomeMediaKind enumerates media accepted for the welcome message.
type WelcomeMediaKind string

const (
	WelcomePhoto     WelcomeMediaKind = "photo"
	WelcomeVideo     WelcomeMediaKind = "video"
	WelcomeAnimation WelcomeMediaKind = "animation"
)

// WelcomeMedia is an optional attachment of the welcome message.
type WelcomeMedia struct {
	Kind WelcomeMediaKind `json:"type"`
	Ref  string           `json:"ref"`
}

// Welcome is the singleton greeting shown on /start.
type Welcome struct {
	Text  string        `json:"text"`
	Media *WelcomeMedia `json:"media,omitempty"`
}

// DefaultWelcomeText is shown until an admin replaces it.
const DefaultWelcomeText = "👋 <b>Welcome!</b>\n\nChoose a product to buy:"

// DefaultWelcome returns the greeting used before any admin edit.
func DefaultWelcome() Welcome {
	return Welcome{Text: DefaultWelcomeText}
}

// Validate checks welcome content before it is stored.
func (w Welcome) Validate() error {
	if strings.TrimSpace(w.Text) == "" {
		return Invalidf("welcome text is required")
	}
	if w.Media == nil {
		return nil
	}
	switch w.Media.Kind {
	case WelcomePhoto, WelcomeVideo, WelcomeAnimation:
	default:
		return Invalidf("unsupported welcome media %q", w.Media.Kind)
	}
	if w.Media.Ref == "" {
		return Invalidf("welcome media reference is required")
	}
	return nil
}
