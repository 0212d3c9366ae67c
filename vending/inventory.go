package vending

import "fmt"

// Slot é uma posição da máquina com um produto e sua quantidade
type Slot struct {
	ID       string  `json:"slot_id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Inventory maps slot ids to slots. Lookups are exact and case-sensitive.
type Inventory struct {
	slots map[string]*Slot
	order []string
}

// NewInventory cria um inventário vazio
func NewInventory() *Inventory {
	return &Inventory{slots: make(map[string]*Slot)}
}

// Add registers a slot. Negative prices and quantities are rejected along
// with duplicate ids.
func (inv *Inventory) Add(id string, product Product, quantity int) error {
	if _, ok := inv.slots[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSlot, id)
	}
	if product.Price.IsNegative() {
		return fmt.Errorf("negative price %s for slot %s", product.Price.String(), id)
	}
	if quantity < 0 {
		return fmt.Errorf("negative quantity %d for slot %s", quantity, id)
	}

	inv.slots[id] = &Slot{ID: id, Product: product, Quantity: quantity}
	inv.order = append(inv.order, id)
	return nil
}

// Lookup returns a copy of the slot so callers cannot change the quantity
// behind the inventory's back.
func (inv *Inventory) Lookup(id string) (Slot, error) {
	slot, ok := inv.slots[id]
	if !ok {
		return Slot{}, fmt.Errorf("%w: %s", ErrSlotNotFound, id)
	}
	return *slot, nil
}

// Decrement takes one unit out of the slot. It is the only way stock leaves
// the machine.
func (inv *Inventory) Decrement(id string) error {
	slot, ok := inv.slots[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, id)
	}
	if slot.Quantity < 1 {
		return fmt.Errorf("%w: %s", ErrOutOfStock, id)
	}

	slot.Quantity--
	return nil
}

// Slots lists every slot in the order it was added.
func (inv *Inventory) Slots() []Slot {
	out := make([]Slot, 0, len(inv.order))
	for _, id := range inv.order {
		out = append(out, *inv.slots[id])
	}
	return out
}

// Len returns the number of slots.
func (inv *Inventory) Len() int {
	return len(inv.order)
}
