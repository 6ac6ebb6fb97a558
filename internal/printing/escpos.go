package printing

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"nairapos/terminal/internal/domain"
)

// ESC/POS control bytes.
var (
	escInit      = []byte{0x1B, 0x40}
	alignLeft    = []byte{0x1B, 0x61, 0x00}
	alignCenter  = []byte{0x1B, 0x61, 0x01}
	emphasisOn   = []byte{0x1B, 0x45, 0x01}
	emphasisOff  = []byte{0x1B, 0x45, 0x00}
	sizeDouble   = []byte{0x1D, 0x21, 0x11}
	sizeNormal   = []byte{0x1D, 0x21, 0x00}
	feedAndCut   = []byte{0x1B, 0x64, 0x04, 0x1D, 0x56, 0x41, 0x10}
	lineWidth    = 32
	rowSeparator = strings.Repeat("-", lineWidth) + "\n"
)

// thermalVendorIDs are USB vendor ids of chipsets commonly found in serial
// thermal printers and their USB-serial bridges. Discovery only surfaces
// ports matching this list so random modems and debug probes never show up
// as printer candidates.
var thermalVendorIDs = map[string]bool{
	"0416": true, // Winbond, common in generic 58/80mm printers
	"04B8": true, // Epson
	"0483": true, // STMicroelectronics
	"0403": true, // FTDI bridge
	"067B": true, // Prolific bridge
	"10C4": true, // Silicon Labs CP210x bridge
	"1A86": true, // WCH CH340 bridge
	"1504": true, // Bixolon
}

type portOpener func(name string) (io.WriteCloser, error)

type portLister func() ([]*enumerator.PortDetails, error)

// ThermalPrinter drives an ESC/POS printer over a serial port. The whole
// document is built in memory first and written as sequential chunks, so a
// write failure never leaves a half-rendered command in flight.
type ThermalPrinter struct {
	portName string
	log      *zap.Logger

	open portOpener
	list portLister

	mu   sync.Mutex
	port io.WriteCloser
}

func NewThermalPrinter(portName string, log *zap.Logger) *ThermalPrinter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ThermalPrinter{
		portName: portName,
		log:      log,
		open:     openSerialPort,
		list:     enumerator.GetDetailedPortsList,
	}
}

func openSerialPort(name string) (io.WriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(name, mode)
}

func (t *ThermalPrinter) Name() string { return "thermal" }

// Supported reports whether serial enumeration works on this host at all.
func (t *ThermalPrinter) Supported() bool {
	_, err := t.list()
	return err == nil
}

// Connect opens the configured serial port. Connecting twice is a no-op on
// an already-open port. Failure is soft: the caller decides whether to fall
// back, nothing is thrown away.
func (t *ThermalPrinter) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return nil
	}

	port, err := t.open(t.portName)
	if err != nil {
		return &PrintError{Strategy: t.Name(), Reason: fmt.Sprintf("open port %s", t.portName), Err: err}
	}
	t.port = port
	t.log.Info("thermal printer connected", zap.String("port", t.portName))
	return nil
}

// PrintReceipt writes the rendered ESC/POS document chunk by chunk.
func (t *ThermalPrinter) PrintReceipt(ctx context.Context, tx domain.Transaction) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return &PrintError{Strategy: t.Name(), Reason: "not connected"}
	}

	for _, chunk := range escposDocument(tx) {
		if _, err := t.port.Write(chunk); err != nil {
			return &PrintError{Strategy: t.Name(), Reason: "write", Err: err}
		}
	}
	return nil
}

// Disconnect closes the port if open. Safe to call repeatedly.
func (t *ThermalPrinter) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return
	}
	if err := t.port.Close(); err != nil {
		t.log.Warn("closing printer port failed", zap.String("port", t.portName), zap.Error(err))
	}
	t.port = nil
}

// escposDocument renders the transaction as a sequence of ESC/POS byte
// chunks. Amounts carry the ASCII "NGN" marker: thermal code pages cannot be
// relied on to hold the naira glyph.
func escposDocument(tx domain.Transaction) [][]byte {
	view := newReceiptView(tx)

	var doc [][]byte
	raw := func(b []byte) { doc = append(doc, b) }
	text := func(format string, args ...any) {
		doc = append(doc, []byte(fmt.Sprintf(format+"\n", args...)))
	}

	raw(escInit)

	raw(alignCenter)
	raw(sizeDouble)
	raw(emphasisOn)
	text("%s", view.OrgName)
	raw(emphasisOff)
	raw(sizeNormal)
	text("%s", view.OrgAddress)
	text("%s", view.OrgPhone)
	text("")

	raw(alignLeft)
	if view.Customer.Name != "" {
		text("Customer: %s", view.Customer.Name)
	}
	if view.Customer.Phone != "" {
		text("Phone: %s", view.Customer.Phone)
	}
	if view.Customer.Address != "" {
		text("Address: %s", view.Customer.Address)
	}
	text("Receipt: %s", view.ID)
	text("Date: %s  %s", view.Date, view.Time)
	text("Status: %s", view.Status)
	raw([]byte(rowSeparator))

	for _, item := range view.Items {
		text("%s", item.Name)
		if item.Details != "" {
			text("  %s", item.Details)
		}
		text("  %d x NGN %s = NGN %s", item.Quantity, FormatAmount(item.UnitPrice), FormatAmount(item.LineTotal))
	}
	raw([]byte(rowSeparator))

	raw(sizeDouble)
	raw(emphasisOn)
	text("TOTAL: NGN %s", FormatAmount(view.GrandTotal))
	raw(emphasisOff)
	raw(sizeNormal)

	if len(view.Payments) > 0 {
		text("")
		text("Payment")
		for _, row := range view.Payments {
			text("  %s: NGN %s", row.Label, FormatAmount(row.Amount))
		}
	}

	text("")
	raw(alignCenter)
	text("Thank you for your patronage!")

	raw(feedAndCut)
	return doc
}
