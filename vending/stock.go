package vending

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultSlotCapacity is how many units a slot holds when the stock line
// does not say.
const DefaultSlotCapacity = 5

// LoadInventory reads pipe-delimited stock lines:
//
//	A1|Potato Crisps|3.05|Chip
//	B2|Cowtales|1.50|Candy|3
//
// The optional fifth field overrides capacity for that slot.
func LoadInventory(r io.Reader, capacity int) (*Inventory, error) {
	reader := csv.NewReader(r)
	reader.Comma = '|'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	inv := NewInventory()
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedStock, line, err)
		}

		id, product, quantity, err := parseStockRecord(record, capacity)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedStock, line, err)
		}
		if err := inv.Add(id, product, quantity); err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
	}

	return inv, nil
}

func parseStockRecord(record []string, capacity int) (string, Product, int, error) {
	if len(record) != 4 && len(record) != 5 {
		return "", Product{}, 0, fmt.Errorf("expected 4 or 5 fields, got %d", len(record))
	}

	id := strings.TrimSpace(record[0])
	if id == "" {
		return "", Product{}, 0, errors.New("slot id is required")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return "", Product{}, 0, fmt.Errorf("price %q: %v", record[2], err)
	}
	if price.IsNegative() {
		return "", Product{}, 0, fmt.Errorf("price %q is negative", record[2])
	}

	quantity := capacity
	if len(record) == 5 {
		quantity, err = strconv.Atoi(strings.TrimSpace(record[4]))
		if err != nil || quantity < 0 {
			return "", Product{}, 0, fmt.Errorf("quantity %q is not a non-negative integer", record[4])
		}
	}

	product := NewProduct(strings.TrimSpace(record[1]), price, ParseCategory(record[3]))
	return id, product, quantity, nil
}
