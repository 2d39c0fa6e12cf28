package shop

import "strings"

// ActionKind is the decoded form of an inline button's data.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionBuy
	ActionAdminAddProduct
	ActionAdminListProducts
	ActionAdminEditWelcome
	ActionAdminStats
	ActionAdminCancel
	ActionAdminBack
	ActionAdminView
	ActionAdminDelete
)

var actionNames = map[ActionKind]string{
	ActionUnknown:           "unknown",
	ActionBuy:               "buy",
	ActionAdminAddProduct:   "admin_add_product",
	ActionAdminListProducts: "admin_list_products",
	ActionAdminEditWelcome:  "admin_edit_start",
	ActionAdminStats:        "admin_stats",
	ActionAdminCancel:       "admin_cancel",
	ActionAdminBack:         "admin_back",
	ActionAdminView:         "admin_view",
	ActionAdminDelete:       "admin_delete",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// Admin reports whether the action requires the access guard.
func (k ActionKind) Admin() bool {
	return k >= ActionAdminAddProduct && k <= ActionAdminDelete
}

// Action is a decoded button press.
type Action struct {
	Kind      ActionKind
	ProductID string
}

// Wire prefixes for per-product actions.
const (
	prefixBuy         = "buy_"
	prefixAdminView   = "admin_view_"
	prefixAdminDelete = "admin_delete_"
)

var exactActions = map[string]ActionKind{
	"admin_add_product":   ActionAdminAddProduct,
	"admin_list_products": ActionAdminListProducts,
	"admin_edit_start":    ActionAdminEditWelcome,
	"admin_stats":         ActionAdminStats,
	"admin_cancel":        ActionAdminCancel,
	"admin_back":          ActionAdminBack,
}

var prefixActions = []struct {
	prefix string
	kind   ActionKind
}{
	{prefixBuy, ActionBuy},
	{prefixAdminView, ActionAdminView},
	{prefixAdminDelete, ActionAdminDelete},
}

// ParseAction decodes button data. Exact entries win over prefixes; a
// prefix with an empty id and any other string decode to ActionUnknown.
func ParseAction(data string) Action {
	if kind, ok := exactActions[data]; ok {
		return Action{Kind: kind}
	}
	for _, p := range prefixActions {
		if id, ok := strings.CutPrefix(data, p.prefix); ok && id != "" {
			return Action{Kind: p.kind, ProductID: id}
		}
	}
	return Action{Kind: ActionUnknown}
}

// Data encodes the action back into button data.
func (a Action) Data() string {
	switch a.Kind {
	case ActionBuy:
		return prefixBuy + a.ProductID
	case ActionAdminView:
		return prefixAdminView + a.ProductID
	case ActionAdminDelete:
		return prefixAdminDelete + a.ProductID
	case ActionUnknown:
		return ""
	}
	return a.Kind.String()
}
