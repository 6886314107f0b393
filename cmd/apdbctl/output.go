package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/ap-survey/apdb/internal/frame"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"})
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"})
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"})
)

// FatalError writes a styled error to stderr and exits 1, matching the
// teacher's cmd/bd/errors.go FatalError.
func FatalError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errStyle.Render("Error: "+fmt.Sprintf(format, args...)))
	os.Exit(1)
}

// outputJSON encodes v as indented JSON to stdout.
func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		FatalError("encoding JSON: %v", err)
	}
}

// printResult renders a frame.Result as either JSON or a lipgloss-styled
// plain table, depending on the --json flag.
func printResult(result frame.Result) {
	if jsonOutput {
		outputJSON(result.Rows())
		return
	}
	printTable(result)
}

func printTable(result frame.Result) {
	cols := result.Columns()
	if len(cols) == 0 {
		fmt.Println(mutedStyle.Render("(no columns)"))
		return
	}

	header := ""
	for i, c := range cols {
		if i > 0 {
			header += "  "
		}
		header += c
	}
	fmt.Println(headerStyle.Render(header))

	n := result.NumRows()
	for r := 0; r < n; r++ {
		line := ""
		for i, c := range cols {
			if i > 0 {
				line += "  "
			}
			line += fmt.Sprintf("%v", result.At(r, c))
		}
		fmt.Println(line)
	}
	fmt.Println(mutedStyle.Render(fmt.Sprintf("(%d rows)", n)))
}
