package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderLine is a catalog item code with its accumulated quantity.
type OrderLine struct {
	ItemCode int `json:"item_code"`
	Quantity int `json:"quantity"`
}

// DraftState is the serializable form of a draft, used by draft stores.
type DraftState struct {
	TableNumber int         `json:"table_number"`
	Lines       []OrderLine `json:"lines"`
}

// Draft accumulates item selections for one table until it is finalized.
// A Draft is not safe for concurrent use.
type Draft struct {
	catalog *Catalog
	table   int
	lines   []OrderLine
}

// StartDraft returns an empty draft bound to tableNumber.
func StartDraft(catalog *Catalog, tableNumber int) (*Draft, error) {
	if tableNumber <= 0 {
		return nil, fmt.Errorf("table number %d must be > 0: %w", tableNumber, ErrInvalidInput)
	}
	return &Draft{catalog: catalog, table: tableNumber}, nil
}

// RestoreDraft rebuilds a draft from a stored state, re-validating every line.
func RestoreDraft(catalog *Catalog, st DraftState) (*Draft, error) {
	d, err := StartDraft(catalog, st.TableNumber)
	if err != nil {
		return nil, err
	}
	for i, l := range st.Lines {
		if _, err := d.AddItem(l.ItemCode, l.Quantity); err != nil {
			return nil, fmt.Errorf("line[%d]: %w", i, err)
		}
	}
	return d, nil
}

// Table returns the table number the draft is bound to.
func (d *Draft) Table() int { return d.table }

// AddItem adds quantity units of the item to the draft and returns the
// item's new total quantity. Repeated codes accumulate on the first line
// created for that code. A failed call leaves the draft unchanged.
func (d *Draft) AddItem(code, quantity int) (int, error) {
	if _, err := d.catalog.Lookup(code); err != nil {
		return 0, err
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity %d must be > 0: %w", quantity, ErrInvalidInput)
	}
	for i := range d.lines {
		if d.lines[i].ItemCode == code {
			d.lines[i].Quantity += quantity
			return d.lines[i].Quantity, nil
		}
	}
	d.lines = append(d.lines, OrderLine{ItemCode: code, Quantity: quantity})
	return quantity, nil
}

// Lines returns a copy of the current lines in insertion order.
func (d *Draft) Lines() []OrderLine {
	out := make([]OrderLine, len(d.lines))
	copy(out, d.lines)
	return out
}

// Len returns the number of distinct items in the draft.
func (d *Draft) Len() int { return len(d.lines) }

// Total returns the running total of the draft.
func (d *Draft) Total() decimal.Decimal {
	total, _ := NewBillingView(d.catalog).LinesTotal(d.lines)
	return total
}

// Clear discards every line but keeps the table binding.
func (d *Draft) Clear() { d.lines = nil }

// State returns the serializable form of the draft.
func (d *Draft) State() DraftState {
	return DraftState{TableNumber: d.table, Lines: d.Lines()}
}

// Finalize hands the accumulated lines over and clears the draft.
func (d *Draft) Finalize() ([]OrderLine, error) {
	if len(d.lines) == 0 {
		return nil, fmt.Errorf("finalize draft for table %d: %w", d.table, ErrEmptyOrder)
	}
	lines := d.lines
	d.lines = nil
	return lines, nil
}
