package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kalambet/stockwise/internal/storage"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// diag receives progress and status lines so stdout stays clean for
// command output that may be piped.
var diag io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func emit(color, mark, format string, args ...any) {
	fmt.Fprintln(diag, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { emit(colorGreen, "✓", format, args...) }

func printError(format string, args ...any) { emit(colorRed, "✗", format, args...) }

func printWarning(format string, args ...any) { emit(colorYellow, "⚠", format, args...) }

// printStep reports server lifecycle progress.
func printStep(format string, args ...any) { emit(colorCyan, "→", format, args...) }

// printStatus writes one indented "label: value" row of stockwise status.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(diag, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// statusLabel colors an alert delivery status.
func statusLabel(status string) string {
	switch status {
	case storage.AlertDelivered:
		return colorize(colorGreen, status)
	case storage.AlertFailed:
		return colorize(colorRed, status)
	default:
		return colorize(colorYellow, status)
	}
}
