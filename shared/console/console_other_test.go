//go:build !windows

package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlueFromColorFGBG(t *testing.T) {
	tests := map[string]bool{
		"":        false,
		"15;0":    false,
		"15;4":    true,
		"0;12":    true,
		"15;":     false,
		" 7;4 ":   true,
		"default": false,
	}

	for raw, want := range tests {
		assert.Equal(t, want, blueFromColorFGBG(raw), raw)
	}
}
