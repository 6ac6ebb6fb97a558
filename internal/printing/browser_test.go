package printing

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestBrowserPrintRendersAndOpensReceipt(t *testing.T) {
	printer := NewBrowserPrinter(nil)
	printer.tempDir = t.TempDir()

	var opened string
	printer.openFile = func(path string) error {
		opened = path
		return nil
	}

	if err := printer.PrintReceipt(context.Background(), sampleTransaction()); err != nil {
		t.Fatalf("PrintReceipt: %v", err)
	}
	if opened == "" {
		t.Fatalf("expected the receipt file to be opened")
	}

	raw, err := os.ReadFile(opened)
	if err != nil {
		t.Fatalf("reading rendered receipt: %v", err)
	}
	html := string(raw)
	for _, want := range []string{
		orgName,
		"Receipt: tx-42",
		"Galaxy A16",
		"₦1,500",
		"₦1,000",
		"window.print()",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered receipt missing %q", want)
		}
	}
}

func TestBrowserPrintReportsOpenFailure(t *testing.T) {
	printer := NewBrowserPrinter(nil)
	printer.tempDir = t.TempDir()
	printer.openFile = func(string) error { return errors.New("no display") }

	err := printer.PrintReceipt(context.Background(), sampleTransaction())
	var printErr *PrintError
	if !errors.As(err, &printErr) {
		t.Fatalf("expected PrintError, got %v", err)
	}
	if printErr.Strategy != BrowserPrinterID {
		t.Fatalf("unexpected strategy: %q", printErr.Strategy)
	}
}

func TestBrowserStrategyAlwaysSupported(t *testing.T) {
	printer := NewBrowserPrinter(nil)
	if !printer.Supported() {
		t.Fatalf("browser strategy must always be supported")
	}
	if err := printer.Connect(context.Background()); err != nil {
		t.Fatalf("Connect must be a no-op: %v", err)
	}
}
