package kody

import "time"

// OrderStatus mirrors the status values of the Kody ordering API.
type OrderStatus string

const (
	StatusNew        OrderStatus = "NEW"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// Order is one order as returned by the Kody API. Read-only input for the
// sync engine; amounts stay decimal strings until the POS mapping parses them.
type Order struct {
	OrderID             string      `json:"order_id"`
	StoreID             string      `json:"store_id"`
	TotalAmount         string      `json:"total_amount"`
	Status              OrderStatus `json:"status"`
	DateCreated         time.Time   `json:"date_created"`
	OrderNotes          string      `json:"order_notes,omitempty"`
	LocationNumber      string      `json:"location_number,omitempty"`
	ServiceChargeAmount string      `json:"service_charge_amount,omitempty"`
	Items               []OrderItem `json:"items"`
}

// OrderItem is one line item of an Order. IntegrationID carries the POS menu
// item id as a string; it is resolved against the POS menu_item table when
// the order is written.
type OrderItem struct {
	ItemID        string `json:"item_id"`
	IntegrationID string `json:"integration_id"`
	Quantity      uint32 `json:"quantity"`
	UnitPrice     string `json:"unit_price"`
	ItemNotes     string `json:"item_notes,omitempty"`
}
