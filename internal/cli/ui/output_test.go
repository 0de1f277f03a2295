package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStylesRenderContent(t *testing.T) {
	for name, rendered := range map[string]string{
		"error":   ErrorStyle.Render("message"),
		"success": SuccessStyle.Render("message"),
		"info":    InfoStyle.Render("message"),
		"warning": WarningStyle.Render("message"),
		"dim":     DimStyle.Render("message"),
		"bold":    BoldStyle.Render("message"),
	} {
		assert.True(t, strings.Contains(rendered, "message"), "style %s", name)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "< 1m"},
		{90 * time.Second, "1m"},
		{45 * time.Minute, "45m"},
		{3 * time.Hour, "3h"},
		{36 * time.Hour, "1d"},
		{10 * 24 * time.Hour, "10d"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), "duration %s", tt.d)
	}
}
