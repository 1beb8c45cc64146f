package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Printf("%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Printf("%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Printf("\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Printf("\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Printf("%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a string from stdin with trimming
func ReadString(prompt string) string {
	reader := bufio.NewReader(os.Stdin)
	PrintInfo(prompt)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// ReadDate reads a date from stdin with validation
func ReadDate(prompt string) (time.Time, error) {
	input := ReadString(prompt)
	if input == "today" {
		return time.Now(), nil
	}
	date, err := time.Parse("2006-01-02", input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", input)
	}
	return date, nil
}

// ReadOptionalDateRange lets the user override the configured study window.
// Empty input keeps the defaults.
func ReadOptionalDateRange(defaultStart, defaultEnd string) (string, string, error) {
	input := ReadString(fmt.Sprintf("Enter start date (YYYY-MM-DD, empty for %s): ", defaultStart))
	start := defaultStart
	if input != "" {
		if _, err := time.Parse("2006-01-02", input); err != nil {
			return "", "", fmt.Errorf("invalid start date: %s", input)
		}
		start = input
	}

	input = ReadString(fmt.Sprintf("Enter end date (YYYY-MM-DD, empty for %s): ", defaultEnd))
	end := defaultEnd
	if input != "" {
		if _, err := time.Parse("2006-01-02", input); err != nil {
			return "", "", fmt.Errorf("invalid end date: %s", input)
		}
		end = input
	}
	return start, end, nil
}
