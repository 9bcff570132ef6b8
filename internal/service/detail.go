package service

import (
	"time"
)

// OrderDetail is the priced JSON view of an order, used by the HTTP API
// and by order events.
type OrderDetail struct {
	ID          int64             `json:"id"`
	TableNumber int               `json:"table_number"`
	Status      string            `json:"status"`
	Items       []OrderItemDetail `json:"items"`
	Total       string            `json:"total"`
	CreatedAt   time.Time         `json:"created_at"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
}

// OrderItemDetail is one priced line of an OrderDetail.
type OrderItemDetail struct {
	ItemCode  int    `json:"item_code"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// Detail prices the order for display.
func (b *BillingView) Detail(o Order) (OrderDetail, error) {
	r, err := b.Receipt(o)
	if err != nil {
		return OrderDetail{}, err
	}
	d := OrderDetail{
		ID:          o.ID,
		TableNumber: o.TableNumber,
		Status:      o.Status.String(),
		Items:       make([]OrderItemDetail, 0, len(r.Lines)),
		Total:       r.Total.StringFixed(2),
		CreatedAt:   o.CreatedAt,
		DeliveredAt: o.DeliveredAt,
	}
	for _, l := range r.Lines {
		d.Items = append(d.Items, OrderItemDetail{
			ItemCode:  l.Item.Code,
			Name:      l.Item.Name,
			Category:  l.Item.Category,
			Quantity:  l.Quantity,
			UnitPrice: l.Item.Price.StringFixed(2),
			Subtotal:  l.Subtotal.StringFixed(2),
		})
	}
	return d, nil
}
