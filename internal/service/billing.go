package service

import (
	"fmt"
	"time"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// BillingView derives prices and printable views from orders. It holds no
// state besides the catalog.
type BillingView struct {
	catalog *Catalog
}

// NewBillingView creates a BillingView over catalog.
func NewBillingView(catalog *Catalog) *BillingView {
	return &BillingView{catalog: catalog}
}

// TicketEntry is one item on a kitchen ticket.
type TicketEntry struct {
	Item     CatalogItem
	Quantity int
}

// TicketGroup is the ticket section for one category.
type TicketGroup struct {
	Category string
	Entries  []TicketEntry
}

// KitchenTicket is the comanda sent to the kitchen.
type KitchenTicket struct {
	OrderID     int64
	TableNumber int
	CreatedAt   time.Time
	Groups      []TicketGroup
}

// ReceiptLine is one priced line on a customer receipt.
type ReceiptLine struct {
	Item     CatalogItem
	Quantity int
	Subtotal decimal.Decimal
}

// Receipt is the customer bill for one order.
type Receipt struct {
	OrderID     int64
	TableNumber int
	Status      enum.OrderStatus
	CreatedAt   time.Time
	DeliveredAt *time.Time
	Lines       []ReceiptLine
	Total       decimal.Decimal
}

// Summary counts orders by status.
type Summary struct {
	Pending   int
	Delivered int
	Total     int
}

// Report is the ledger-wide summary with the orders behind each count.
type Report struct {
	Summary   Summary
	Pending   []Order
	Delivered []Order
}

// LineSubtotal returns price * quantity for the line.
func (b *BillingView) LineSubtotal(line OrderLine) (decimal.Decimal, error) {
	it, err := b.catalog.Lookup(line.ItemCode)
	if err != nil {
		return decimal.Zero, err
	}
	return it.Price.Mul(decimal.NewFromInt(int64(line.Quantity))), nil
}

// LinesTotal sums LineSubtotal over lines.
func (b *BillingView) LinesTotal(lines []OrderLine) (decimal.Decimal, error) {
	total := decimal.Zero
	for i, line := range lines {
		sub, err := b.LineSubtotal(line)
		if err != nil {
			return decimal.Zero, fmt.Errorf("line[%d]: %w", i, err)
		}
		total = total.Add(sub)
	}
	return total, nil
}

// OrderTotal is the grand total of the order.
func (b *BillingView) OrderTotal(o Order) (decimal.Decimal, error) {
	total, err := b.LinesTotal(o.Lines)
	if err != nil {
		return decimal.Zero, fmt.Errorf("order %d: %w", o.ID, err)
	}
	return total, nil
}

// GroupByCategory groups the order's lines by category. Categories keep
// the order of their first appearance in the line list.
func (b *BillingView) GroupByCategory(o Order) ([]TicketGroup, error) {
	var groups []TicketGroup
	pos := make(map[string]int)
	for i, line := range o.Lines {
		it, err := b.catalog.Lookup(line.ItemCode)
		if err != nil {
			return nil, fmt.Errorf("order %d: line[%d]: %w", o.ID, i, err)
		}
		g, ok := pos[it.Category]
		if !ok {
			g = len(groups)
			pos[it.Category] = g
			groups = append(groups, TicketGroup{Category: it.Category})
		}
		groups[g].Entries = append(groups[g].Entries, TicketEntry{Item: it, Quantity: line.Quantity})
	}
	return groups, nil
}

// KitchenTicket builds the comanda for a pending order. Printing a ticket
// never changes the order's status.
func (b *BillingView) KitchenTicket(o Order) (KitchenTicket, error) {
	switch o.Status {
	case enum.OrderStatusPending:
	case enum.OrderStatusDelivered:
		return KitchenTicket{}, fmt.Errorf("kitchen ticket for order %d: %w", o.ID, ErrAlreadyDelivered)
	default:
		return KitchenTicket{}, fmt.Errorf("kitchen ticket for order %d: unknown status %v", o.ID, o.Status)
	}
	groups, err := b.GroupByCategory(o)
	if err != nil {
		return KitchenTicket{}, err
	}
	return KitchenTicket{
		OrderID:     o.ID,
		TableNumber: o.TableNumber,
		CreatedAt:   o.CreatedAt,
		Groups:      groups,
	}, nil
}

// Receipt prices every line of the order.
func (b *BillingView) Receipt(o Order) (Receipt, error) {
	r := Receipt{
		OrderID:     o.ID,
		TableNumber: o.TableNumber,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		DeliveredAt: o.DeliveredAt,
		Lines:       make([]ReceiptLine, 0, len(o.Lines)),
		Total:       decimal.Zero,
	}
	for i, line := range o.Lines {
		it, err := b.catalog.Lookup(line.ItemCode)
		if err != nil {
			return Receipt{}, fmt.Errorf("order %d: line[%d]: %w", o.ID, i, err)
		}
		sub := it.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		r.Lines = append(r.Lines, ReceiptLine{Item: it, Quantity: line.Quantity, Subtotal: sub})
		r.Total = r.Total.Add(sub)
	}
	return r, nil
}

// Summarize counts orders by status.
func Summarize(orders []Order) Summary {
	var s Summary
	for _, o := range orders {
		switch o.Status {
		case enum.OrderStatusPending:
			s.Pending++
		case enum.OrderStatusDelivered:
			s.Delivered++
		}
		s.Total++
	}
	return s
}

// BuildReport splits orders by status, keeping their relative order.
func BuildReport(orders []Order) Report {
	r := Report{
		Summary:   Summarize(orders),
		Pending:   []Order{},
		Delivered: []Order{},
	}
	for _, o := range orders {
		switch o.Status {
		case enum.OrderStatusPending:
			r.Pending = append(r.Pending, o)
		case enum.OrderStatusDelivered:
			r.Delivered = append(r.Delivered, o)
		}
	}
	return r
}
