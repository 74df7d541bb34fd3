package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	blue   = color.New(color.FgBlue, color.Bold)
	red    = color.New(color.FgRed)
)

func header(text string) {
	blue.Println(text)
}

func success(text string) {
	green.Printf("  ✓ %s\n", text)
}

func info(text string) {
	fmt.Printf("  → %s\n", text)
}

// Warnings and failures go to stderr so they never mix with CSV output.
func warning(text string) {
	yellow.Fprintf(os.Stderr, "  ⚠ %s\n", text)
}

func failure(text string) {
	red.Fprintf(os.Stderr, "  ✗ %s\n", text)
}
