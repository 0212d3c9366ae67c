package vending

import "errors"

// Erros de domínio. Todos são recuperáveis: o chamador mostra a mensagem e
// pede uma nova entrada.
var (
	ErrInvalidDenomination = errors.New("invalid denomination")
	ErrSlotNotFound        = errors.New("invalid slot id")
	ErrOutOfStock          = errors.New("item is sold out")
	ErrInsufficientFunds   = errors.New("not enough money to purchase")
	ErrTransactionClosed   = errors.New("transaction closed")

	ErrDuplicateSlot  = errors.New("duplicate slot id")
	ErrMalformedStock = errors.New("malformed stock line")
)
