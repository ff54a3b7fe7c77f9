package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerchantPrefix(t *testing.T) {
	tests := []struct {
		name     string
		merchant string
		want     string
	}{
		{"single word", "Brewhaven", "B"},
		{"two words", "Brew Haven", "BH"},
		{"three words", "Trattoria Da Mario", "TDM"},
		{"truncated to three", "The Old Brew Haven Cafe", "TOB"},
		{"lowercased input", "brew haven", "BH"},
		{"empty name", "", "MRC"},
		{"whitespace only", "   ", "MRC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merchantPrefix(tt.merchant))
		})
	}
}

func TestFormatReceiptNumber(t *testing.T) {
	assert.Equal(t, "BH-000001", formatReceiptNumber("BH", 1))
	assert.Equal(t, "MRC-000042", formatReceiptNumber("MRC", 42))
	assert.Equal(t, "TDM-1000000", formatReceiptNumber("TDM", 1000000))
}
