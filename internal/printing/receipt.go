package printing

import (
	"fmt"
	"strings"

	"nairapos/terminal/internal/domain"
)

// Fixed organization identity block printed at the top of every receipt.
const (
	orgName    = "NairaPOS Gadget Store"
	orgAddress = "12 Adeola Odeku Street, Victoria Island, Lagos"
	orgPhone   = "+234 801 234 5678"
)

// GrandTotal is the amount printed as TOTAL: the sum of the payment breakdown
// when one is present, otherwise the stored transaction total. Both printing
// strategies use this and therefore always agree. The fallback chain is
// deliberate, not a discrepancy to reconcile.
func GrandTotal(tx domain.Transaction) int64 {
	if sum := tx.Payment.Sum(); sum > 0 {
		return sum
	}
	return tx.Total
}

// PaymentRow is one non-zero component of the payment breakdown.
type PaymentRow struct {
	Label  string
	Amount int64
}

// PaymentRows lists only the non-zero breakdown components, in fixed order.
func PaymentRows(tx domain.Transaction) []PaymentRow {
	rows := make([]PaymentRow, 0, 4)
	add := func(label string, amount int64) {
		if amount > 0 {
			rows = append(rows, PaymentRow{Label: label, Amount: amount})
		}
	}
	add("POS", tx.Payment.POS)
	add("Transfer", tx.Payment.Transfer)
	add("Cash in hand", tx.Payment.CashInHand)
	add("Sales on return", tx.Payment.SalesOnReturn)
	return rows
}

// FormatAmount renders an amount with thousands separators and no currency
// marker; each strategy prepends its own.
func FormatAmount(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}

// lineDetails joins the optional descriptive fields of a cart line.
func lineDetails(item domain.CartLine) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{item.Make, item.Model, item.Type, item.Capacity, item.Description} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

type receiptItem struct {
	Name      string
	Details   string
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// receiptView is the strategy-independent shape of a rendered receipt.
type receiptView struct {
	OrgName    string
	OrgAddress string
	OrgPhone   string
	Customer   domain.Customer
	ID         string
	Date       string
	Time       string
	Status     string
	Items      []receiptItem
	GrandTotal int64
	Payments   []PaymentRow
}

func newReceiptView(tx domain.Transaction) receiptView {
	items := make([]receiptItem, 0, len(tx.Items))
	for _, item := range tx.Items {
		items = append(items, receiptItem{
			Name:      item.Name,
			Details:   lineDetails(item),
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			LineTotal: item.Price * int64(item.Quantity),
		})
	}

	return receiptView{
		OrgName:    orgName,
		OrgAddress: orgAddress,
		OrgPhone:   orgPhone,
		Customer:   tx.Customer,
		ID:         tx.ID,
		Date:       tx.CreatedAt.Format("2006-01-02"),
		Time:       tx.CreatedAt.Format("15:04:05"),
		Status:     tx.Status,
		Items:      items,
		GrandTotal: GrandTotal(tx),
		Payments:   PaymentRows(tx),
	}
}
