package domain

import "errors"

// Identity attributes a cart to either an anonymous browser profile or a
// signed-in account. Exactly one of the two fields is set at any time.
type Identity struct {
	GuestSessionID string `json:"guest_session_id,omitempty"`
	AccountID      string `json:"account_id,omitempty"`
}

func GuestIdentity(sessionID string) Identity {
	return Identity{GuestSessionID: sessionID}
}

func AccountIdentity(accountID string) Identity {
	return Identity{AccountID: accountID}
}

func (i Identity) IsGuest() bool { return i.GuestSessionID != "" }

func (i Identity) IsZero() bool { return i.GuestSessionID == "" && i.AccountID == "" }

// Key returns the cache key for the identity. Guest and account keys never
// collide because the prefixes differ.
func (i Identity) Key() string {
	if i.IsGuest() {
		return "guest:" + i.GuestSessionID
	}
	return "account:" + i.AccountID
}

type CartLine struct {
	LineID         string `json:"line_id"`
	ProductID      string `json:"product_id"`
	VariantID      string `json:"variant_id,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceAtAdd int64  `json:"unit_price_at_add"`
	MaxQuantity    int    `json:"max_quantity,omitempty"`
}

var ErrQuantityExceedsMax = errors.New("quantity exceeds max_quantity")

func (l CartLine) Validate() error {
	if l.ProductID == "" {
		return errors.New("product_id is required")
	}
	if l.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if l.MaxQuantity > 0 && l.Quantity > l.MaxQuantity {
		return ErrQuantityExceedsMax
	}
	return nil
}

// Totals are server-derived. All amounts are in the smallest currency unit.
// The client never recomputes them, it only displays what the backend sent.
type Totals struct {
	Subtotal              int64 `json:"subtotal"`
	Shipping              int64 `json:"shipping"`
	Discount              int64 `json:"discount"`
	Fee                   int64 `json:"fee"`
	Tax                   int64 `json:"tax"`
	Total                 int64 `json:"total"`
	FreeShippingThreshold int64 `json:"free_shipping_threshold,omitempty"`
}

type CartSession struct {
	ID       string     `json:"id"`
	Identity Identity   `json:"identity"`
	Items    []CartLine `json:"items"`
	Totals   Totals     `json:"totals"`
}
