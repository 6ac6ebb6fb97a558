package printing

import (
	"testing"
	"time"

	"nairapos/terminal/internal/domain"
)

func sampleTransaction() domain.Transaction {
	return domain.Transaction{
		ID: "tx-42",
		Items: []domain.CartLine{
			{ID: "prod-1", Name: "Galaxy A16", Make: "Samsung", Model: "A16", Capacity: "128GB", Price: 500, Quantity: 2},
			{ID: "prod-2", Name: "USB Cable", Price: 500, Quantity: 1},
		},
		Customer:  domain.Customer{Name: "Ada", Phone: "0801"},
		Payment:   domain.PaymentBreakdown{POS: 1000, CashInHand: 500},
		Total:     9999,
		Status:    domain.TxStatusSuccessful,
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestGrandTotalPrefersBreakdownSum(t *testing.T) {
	tx := sampleTransaction()
	if got := GrandTotal(tx); got != 1500 {
		t.Fatalf("expected breakdown sum 1500, got %d", got)
	}
}

func TestGrandTotalFallsBackToStoredTotal(t *testing.T) {
	tx := sampleTransaction()
	tx.Payment = domain.PaymentBreakdown{}
	if got := GrandTotal(tx); got != 9999 {
		t.Fatalf("expected stored total 9999, got %d", got)
	}
}

func TestPaymentRowsSkipZeroComponents(t *testing.T) {
	rows := PaymentRows(sampleTransaction())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rows)
	}
	if rows[0].Label != "POS" || rows[0].Amount != 1000 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Label != "Cash in hand" || rows[1].Amount != 500 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1,500"},
		{185000, "185,000"},
		{1234567, "1,234,567"},
		{-2500, "-2,500"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.want {
			t.Fatalf("FormatAmount(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLineDetailsJoinsPresentFields(t *testing.T) {
	line := domain.CartLine{Make: "Samsung", Model: "A16", Capacity: "128GB"}
	if got := lineDetails(line); got != "Samsung / A16 / 128GB" {
		t.Fatalf("unexpected details: %q", got)
	}
	if got := lineDetails(domain.CartLine{}); got != "" {
		t.Fatalf("expected empty details, got %q", got)
	}
}
