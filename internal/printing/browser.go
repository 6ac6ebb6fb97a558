package printing

import (
	"context"
	"html/template"
	"os"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"nairapos/terminal/internal/domain"
)

// BrowserPrinter renders the receipt as a print-styled HTML page, writes it
// to a temp file and opens it in the default browser. The page triggers the
// print dialog itself once loaded. This is the universal fallback: it has no
// hardware requirements, so Supported always holds.
type BrowserPrinter struct {
	log *zap.Logger

	openFile func(path string) error
	tempDir  string
}

func NewBrowserPrinter(log *zap.Logger) *BrowserPrinter {
	if log == nil {
		log = zap.NewNop()
	}
	return &BrowserPrinter{
		log:      log,
		openFile: browser.OpenFile,
	}
}

func (b *BrowserPrinter) Name() string { return "browser" }

func (b *BrowserPrinter) Supported() bool { return true }

func (b *BrowserPrinter) Connect(ctx context.Context) error { return nil }

func (b *BrowserPrinter) Disconnect() {}

func (b *BrowserPrinter) PrintReceipt(ctx context.Context, tx domain.Transaction) error {
	file, err := os.CreateTemp(b.tempDir, "receipt-*.html")
	if err != nil {
		return &PrintError{Strategy: b.Name(), Reason: "create receipt file", Err: err}
	}

	if err := receiptTemplate.Execute(file, newBrowserReceipt(tx)); err != nil {
		file.Close()
		return &PrintError{Strategy: b.Name(), Reason: "render receipt", Err: err}
	}
	if err := file.Close(); err != nil {
		return &PrintError{Strategy: b.Name(), Reason: "flush receipt file", Err: err}
	}

	if err := b.openFile(file.Name()); err != nil {
		return &PrintError{Strategy: b.Name(), Reason: "open receipt in browser", Err: err}
	}

	b.log.Info("receipt opened in browser", zap.String("transaction_id", tx.ID), zap.String("file", file.Name()))
	return nil
}

type browserItem struct {
	Name      string
	Details   string
	Quantity  int
	UnitPrice string
	LineTotal string
}

type browserPaymentRow struct {
	Label  string
	Amount string
}

type browserReceipt struct {
	OrgName    string
	OrgAddress string
	OrgPhone   string
	Customer   domain.Customer
	ID         string
	Date       string
	Time       string
	Status     string
	Items      []browserItem
	GrandTotal string
	Payments   []browserPaymentRow
}

// naira prefixes the glyph the browser can render but the thermal head
// cannot.
func naira(amount int64) string {
	return "₦" + FormatAmount(amount)
}

func newBrowserReceipt(tx domain.Transaction) browserReceipt {
	view := newReceiptView(tx)

	items := make([]browserItem, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, browserItem{
			Name:      item.Name,
			Details:   item.Details,
			Quantity:  item.Quantity,
			UnitPrice: naira(item.UnitPrice),
			LineTotal: naira(item.LineTotal),
		})
	}

	payments := make([]browserPaymentRow, 0, len(view.Payments))
	for _, row := range view.Payments {
		payments = append(payments, browserPaymentRow{Label: row.Label, Amount: naira(row.Amount)})
	}

	return browserReceipt{
		OrgName:    view.OrgName,
		OrgAddress: view.OrgAddress,
		OrgPhone:   view.OrgPhone,
		Customer:   view.Customer,
		ID:         view.ID,
		Date:       view.Date,
		Time:       view.Time,
		Status:     view.Status,
		Items:      items,
		GrandTotal: naira(view.GrandTotal),
		Payments:   payments,
	}
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.ID}}</title>
<style>
  @page { size: 80mm auto; margin: 4mm; }
  body { width: 72mm; margin: 0 auto; font-family: "Courier New", monospace; font-size: 12px; color: #000; }
  .center { text-align: center; }
  .org { font-size: 16px; font-weight: bold; }
  .total { font-size: 15px; font-weight: bold; }
  hr { border: none; border-top: 1px dashed #000; }
  table { width: 100%; border-collapse: collapse; }
  td { vertical-align: top; padding: 1px 0; }
  td.amount { text-align: right; white-space: nowrap; }
  .details { color: #444; padding-left: 8px; }
</style>
</head>
<body>
<div class="center">
  <div class="org">{{.OrgName}}</div>
  <div>{{.OrgAddress}}</div>
  <div>{{.OrgPhone}}</div>
</div>
<hr>
{{if .Customer.Name}}<div>Customer: {{.Customer.Name}}</div>{{end}}
{{if .Customer.Phone}}<div>Phone: {{.Customer.Phone}}</div>{{end}}
{{if .Customer.Address}}<div>Address: {{.Customer.Address}}</div>{{end}}
<div>Receipt: {{.ID}}</div>
<div>Date: {{.Date}} {{.Time}}</div>
<div>Status: {{.Status}}</div>
<hr>
<table>
{{range .Items}}
  <tr><td colspan="2">{{.Name}}</td></tr>
  {{if .Details}}<tr><td colspan="2" class="details">{{.Details}}</td></tr>{{end}}
  <tr><td>{{.Quantity}} x {{.UnitPrice}}</td><td class="amount">{{.LineTotal}}</td></tr>
{{end}}
</table>
<hr>
<table>
  <tr class="total"><td class="total">TOTAL</td><td class="amount total">{{.GrandTotal}}</td></tr>
</table>
{{if .Payments}}
<div>Payment</div>
<table>
{{range .Payments}}
  <tr><td>{{.Label}}</td><td class="amount">{{.Amount}}</td></tr>
{{end}}
</table>
{{end}}
<div class="center">Thank you for your patronage!</div>
<script>
  window.onload = function () {
    setTimeout(function () { window.print(); }, 400);
  };
  window.onafterprint = function () { window.close(); };
</script>
</body>
</html>
`))
