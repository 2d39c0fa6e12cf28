// Package access holds the administrator allow-list.
package access

import (
	"slices"
)

// Guard answers whether a user may run admin operations. It is immutable
// after construction and safe for concurrent use.
type Guard struct {
	admins map[int64]struct{}
	order  []int64
}

// NewGuard builds a guard from configured ids. Zero and duplicate ids are ignored.
func NewGuard(ids []int64) *Guard {
	g := &Guard{admins: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := g.admins[id]; dup {
			continue
		}
		g.admins[id] = struct{}{}
		g.order = append(g.order, id)
	}
	return g
}

// IsAuthorized reports whether userID is on the allow-list.
func (g *Guard) IsAuthorized(userID int64) bool {
	if g == nil {
		return false
	}
	_, ok := g.admins[userID]
	return ok
}

// Admins returns the allow-list in configuration order.
func (g *Guard) Admins() []int64 {
	if g == nil {
		return nil
	}
	return slices.Clone(g.order)
}
