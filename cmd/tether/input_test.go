package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappedLineCount(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  int
	}{
		{"empty takes one row", "", 40, 1},
		{"short line", "hello", 40, 1},
		{"exact fit", strings.Repeat("a", 40), 40, 1},
		{"one char over wraps", strings.Repeat("a", 41), 40, 2},
		{"hard newlines", "one\ntwo\nthree", 40, 3},
		{"blank line between text", "one\n\ntwo", 40, 3},
		{"newline plus soft wrap", strings.Repeat("a", 50) + "\nb", 40, 3},
		{"wide runes wrap sooner", strings.Repeat("あ", 21), 40, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrappedLineCount(tt.text, tt.width))
		})
	}
}
