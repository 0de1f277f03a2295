package ui

import (
	"fmt"
	"os"
	"time"
)

// Error prints an error message to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s\n", ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

// Success prints a success message.
func Success(format string, args ...interface{}) {
	fmt.Printf("%s\n", SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

// Info prints an informational message.
func Info(format string, args ...interface{}) {
	fmt.Printf("%s\n", InfoStyle.Render(fmt.Sprintf(format, args...)))
}

// Warning prints a warning message.
func Warning(format string, args ...interface{}) {
	fmt.Printf("%s\n", WarningStyle.Render(fmt.Sprintf(format, args...)))
}

// OutputLine prints a plain line of output.
func OutputLine(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

// PrintKeyValue prints an aligned key/value detail line.
func PrintKeyValue(key, value string) {
	fmt.Printf("  %s %s\n", DimStyle.Render(key+":"), value)
}

// FormatDuration formats a duration into a compact human-readable string.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "< 1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
