package enum

import (
	"fmt"
	"strings"
)

// ── Order status (closed set) ──

// OrderStatus is the lifecycle state of a ledger order.
// Pending is the only initial state; Delivered is terminal.
type OrderStatus int

const (
	OrderStatusPending OrderStatus = iota + 1
	OrderStatusDelivered
)

// String returns the API label.
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "PENDING"
	case OrderStatusDelivered:
		return "DELIVERED"
	}
	return fmt.Sprintf("OrderStatus(%d)", int(s))
}

// Label returns the label written to the ledger file.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPending:
		return "pendente"
	case OrderStatusDelivered:
		return "entregue"
	}
	return ""
}

// Valid reports whether s is a member of the closed set.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusDelivered:
		return true
	}
	return false
}

// ParseOrderStatus accepts the API labels and the ledger file labels,
// ignoring case.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch strings.ToUpper(s) {
	case "PENDING", "PENDENTE":
		return OrderStatusPending, nil
	case "DELIVERED", "ENTREGUE":
		return OrderStatusDelivered, nil
	}
	return 0, fmt.Errorf("unknown order status %q", s)
}

// ── Staff roles ──

const (
	RoleManager = "MANAGER"
	RoleWaiter  = "WAITER"
	RoleKitchen = "KITCHEN"
)

// ValidRole reports whether r is a known staff role.
func ValidRole(r string) bool {
	switch r {
	case RoleManager, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}

// ── Order events ──

const (
	EventOrderCreated   = "order.created"
	EventOrderDelivered = "order.delivered"
)
