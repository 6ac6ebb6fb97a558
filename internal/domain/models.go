package domain

import "time"

// Product is the catalog record served by the remote inventory API. StockLeft
// is authoritative on the remote side; the terminal never mutates it locally.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	SKU         string    `json:"sku"`
	BasePrice   int64     `json:"basePrice"`
	StockLeft   int       `json:"stockLeft"`
	Make        string    `json:"make,omitempty"`
	Model       string    `json:"model,omitempty"`
	Type        string    `json:"type,omitempty"`
	Capacity    string    `json:"capacity,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	DateAdded   time.Time `json:"dateAdded"`
}

// CartLine is one line of the active cart. ID equals the product id and is
// unique within the cart: re-adding the same product merges quantities. Price
// is the unit price for this line and may be edited independently of the
// product's base price.
type CartLine struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Type        string `json:"type,omitempty"`
	Capacity    string `json:"capacity,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

// NewCartLine is the single conversion point from catalog Product to CartLine.
func NewCartLine(product Product, price int64, quantity int) CartLine {
	return CartLine{
		ID:          product.ID,
		Name:        product.Name,
		Make:        product.Make,
		Model:       product.Model,
		Type:        product.Type,
		Capacity:    product.Capacity,
		Description: product.Description,
		Image:       product.Image,
		Price:       price,
		Quantity:    quantity,
	}
}

// CopyLines returns an independent copy of the given cart lines. CartLine
// holds only value fields, so a fresh slice is a full deep copy.
func CopyLines(lines []CartLine) []CartLine {
	copied := make([]CartLine, len(lines))
	copy(copied, lines)
	return copied
}

// PendingSale is a parked snapshot of a cart. Items are copied at hold time so
// later cart mutations cannot corrupt the snapshot. The snapshot itself never
// touches inventory; reconciliation belongs to whoever empties or refills the
// cart around it.
type PendingSale struct {
	ID        string     `json:"id"`
	Items     []CartLine `json:"items"`
	Total     int64      `json:"total"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Customer identifies the buyer on a receipt. Address and phone are optional.
type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// PaymentBreakdown records how the collected amount splits across payment
// channels. The sum is the amount actually collected and is not checked
// against the cart total here; the caller owns that policy.
type PaymentBreakdown struct {
	POS           int64 `json:"pos"`
	Transfer      int64 `json:"transfer"`
	CashInHand    int64 `json:"cashInHand"`
	SalesOnReturn int64 `json:"salesOnReturn"`
}

func (b PaymentBreakdown) Sum() int64 {
	return b.POS + b.Transfer + b.CashInHand + b.SalesOnReturn
}

const (
	TxStatusSuccessful = "Successful"
	TxStatusOngoing    = "Ongoing"
	TxStatusFailed     = "Failed"
)

// Transaction is the canonical record of a completed sale, produced by the
// remote sales API at checkout and consumed read-only by receipt printing.
type Transaction struct {
	ID        string           `json:"id"`
	Items     []CartLine       `json:"items"`
	Customer  Customer         `json:"customer"`
	Payment   PaymentBreakdown `json:"paymentBreakdown"`
	Total     int64            `json:"total"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

// SaleRequest is the checkout payload submitted to the remote sales API.
type SaleRequest struct {
	Items         []CartLine       `json:"items"`
	Customer      Customer         `json:"customer"`
	Payment       PaymentBreakdown `json:"paymentBreakdown"`
	PaymentMethod string           `json:"paymentMethod"`
}
