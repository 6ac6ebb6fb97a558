package printing

import (
	"context"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"nairapos/terminal/internal/domain"
	"nairapos/terminal/internal/notify"
)

// BrowserPrinterID is the pseudo printer id that always resolves to the
// browser strategy.
const BrowserPrinterID = "browser"

// Strategy is one way of turning a transaction into a printed receipt.
type Strategy interface {
	Name() string
	Supported() bool
	Connect(ctx context.Context) error
	PrintReceipt(ctx context.Context, tx domain.Transaction) error
	Disconnect()
}

// PrintError describes a failed step of a print attempt.
type PrintError struct {
	Strategy string
	Reason   string
	Err      error
}

func (e *PrintError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("print via %s: %s", e.Strategy, e.Reason)
	}
	return fmt.Sprintf("print via %s: %s: %v", e.Strategy, e.Reason, e.Err)
}

func (e *PrintError) Unwrap() error { return e.Err }

// PrinterInfo is one selectable printing destination.
type PrinterInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Manager resolves a printer selection to a strategy and runs print jobs,
// falling back from thermal to browser when hardware lets it down. The
// browser path is the floor: a receipt is always producible somehow.
type Manager struct {
	notif notify.Notifier
	log   *zap.Logger

	browser        Strategy
	thermalFor     func(portName string) Strategy
	listPorts      portLister
	defaultPrinter string
}

func NewManager(notif notify.Notifier, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		notif:   notif,
		log:     log,
		browser: NewBrowserPrinter(log),
		thermalFor: func(portName string) Strategy {
			return NewThermalPrinter(portName, log)
		},
		listPorts: enumerator.GetDetailedPortsList,
	}
}

// SetDefaultPrinter fixes the printer used when a request names none,
// typically the configured serial port.
func (m *Manager) SetDefaultPrinter(printerID string) {
	m.defaultPrinter = printerID
}

// Resolve maps a printer id to a strategy. Anything other than a usable
// thermal selection lands on the browser: no id and no configured default,
// the explicit browser id, or a host where serial enumeration does not work.
func (m *Manager) Resolve(printerID string) Strategy {
	if printerID == "" {
		printerID = m.defaultPrinter
	}
	if printerID == "" || printerID == BrowserPrinterID {
		return m.browser
	}

	thermal := m.thermalFor(printerID)
	if !thermal.Supported() {
		m.log.Warn("serial printing unsupported on this host, using browser", zap.String("printer_id", printerID))
		return m.browser
	}
	return thermal
}

// Print runs one print job against the selected printer. A thermal failure at
// any step degrades to the browser strategy with a warning instead of losing
// the receipt.
func (m *Manager) Print(ctx context.Context, printerID string, tx domain.Transaction) error {
	strategy := m.Resolve(printerID)

	if strategy.Name() != BrowserPrinterID {
		err := m.printThermal(ctx, strategy, tx)
		if err == nil {
			m.notif.Notify(notify.LevelSuccess, "Receipt sent to thermal printer")
			return nil
		}
		m.log.Warn("thermal print failed, falling back to browser",
			zap.String("printer_id", printerID), zap.String("transaction_id", tx.ID), zap.Error(err))
		m.notif.Notify(notify.LevelWarning, "Thermal printer failed, opening receipt in browser")
		strategy = m.browser
	}

	if err := strategy.PrintReceipt(ctx, tx); err != nil {
		m.notif.Notify(notify.LevelError, "Receipt could not be opened for printing")
		return err
	}
	m.notif.Notify(notify.LevelSuccess, "Receipt ready in browser")
	return nil
}

func (m *Manager) printThermal(ctx context.Context, strategy Strategy, tx domain.Transaction) error {
	if err := strategy.Connect(ctx); err != nil {
		return err
	}
	defer strategy.Disconnect()
	return strategy.PrintReceipt(ctx, tx)
}

// ListPrinters enumerates serial ports whose USB vendor id matches a known
// thermal-printer chipset, plus the browser pseudo printer. The browser entry
// is always present and always last.
func (m *Manager) ListPrinters() []PrinterInfo {
	printers := make([]PrinterInfo, 0, 4)

	ports, err := m.listPorts()
	if err != nil {
		m.log.Warn("serial port enumeration failed", zap.Error(err))
	} else {
		for _, port := range ports {
			if !port.IsUSB || !thermalVendorIDs[strings.ToUpper(port.VID)] {
				continue
			}
			name := fmt.Sprintf("Thermal printer (%s)", port.Name)
			if port.Product != "" {
				name = fmt.Sprintf("%s (%s)", port.Product, port.Name)
			}
			printers = append(printers, PrinterInfo{ID: port.Name, Name: name, Kind: "thermal"})
		}
	}

	printers = append(printers, PrinterInfo{ID: BrowserPrinterID, Name: "Browser print dialog", Kind: "browser"})
	return printers
}
