package vending

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category classifies a product for the dispense message
type Category int

const (
	CategoryUnknown Category = iota
	CategoryChip
	CategoryCandy
	CategoryDrink
	CategoryGum
)

var categoryNames = map[Category]string{
	CategoryUnknown: "unknown",
	CategoryChip:    "chip",
	CategoryCandy:   "candy",
	CategoryDrink:   "drink",
	CategoryGum:     "gum",
}

var dispenseMessages = map[Category]string{
	CategoryChip:  "Crunch Crunch, Yum!",
	CategoryCandy: "Munch Munch, Yum!",
	CategoryDrink: "Glug Glug Yum!",
	CategoryGum:   "Chew Chew Yum!",
}

// ParseCategory maps the stock file text to a Category, ignoring case.
// Anything unrecognized becomes CategoryUnknown.
func ParseCategory(s string) Category {
	name := strings.ToLower(strings.TrimSpace(s))
	for c, n := range categoryNames {
		if n == name {
			return c
		}
	}
	return CategoryUnknown
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return categoryNames[CategoryUnknown]
}

// MarshalText lets Category travel as its lower-case name in JSON.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	*c = ParseCategory(string(text))
	return nil
}

// DispenseMessage returns the message shown when a product of this category
// is handed out, or "" when there is none.
func (c Category) DispenseMessage() string {
	return dispenseMessages[c]
}

// Product is a purchasable item. It is never mutated after creation.
type Product struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category Category        `json:"category"`
}

// NewProduct cria uma nova instância de Product
func NewProduct(name string, price decimal.Decimal, category Category) Product {
	return Product{
		Name:     name,
		Price:    price,
		Category: category,
	}
}
