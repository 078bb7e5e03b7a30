package domain

import "time"

// OrderLineSnapshot freezes a cart line at the moment the backend issued the
// payable order. Prices here are display hints, not billing data.
type OrderLineSnapshot struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderSummary is the record carried across the payment redirect boundary.
// It is written as a pending handoff just before the browser leaves for the
// payment page and promoted to the last-order slot only after the backend
// confirms the payment. It is a UX-continuity hint, never proof of payment.
type OrderSummary struct {
	OrderID       string              `json:"order_id"`
	ReferenceCode string              `json:"reference_code,omitempty"`
	PaymentMethod string              `json:"payment_method"`
	Courier       string              `json:"courier,omitempty"`
	DeliveryType  string              `json:"delivery_type,omitempty"`
	LockerName    string              `json:"locker_name,omitempty"`
	LockerAddress string              `json:"locker_address,omitempty"`
	Totals        Totals              `json:"totals"`
	Items         []OrderLineSnapshot `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Order statuses the confirm endpoints may return. Anything else is treated
// as a rejected confirmation.
const (
	StatusPaid      = "paid"
	StatusConfirmed = "confirmed"
)

func RecognizedStatus(status string) bool {
	return status == StatusPaid || status == StatusConfirmed
}
