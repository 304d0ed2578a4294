package main

import (
	"os"

	"github.com/pterm/pterm"
)

var spinnerFrames = []string{"▁▁", "▃▃", "▅▅", "▇▇", "██", "▇▇", "▅▅", "▃▃"}

// startSpinner shows text next to a spinner on stderr until Success, Warning or Fail is called.
func startSpinner(text string) *pterm.SpinnerPrinter {
	sp := pterm.DefaultSpinner.
		WithWriter(os.Stderr).
		WithSequence(spinnerFrames...)
	sp.SuccessPrinter = pterm.Success.WithPrefix(pterm.Prefix{
		Text:  "DONE",
		Style: &pterm.ThemeDefault.SuccessPrefixStyle,
	})
	started, err := sp.Start(text)
	if err != nil {
		return sp
	}
	return started
}
