package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"invoicer/internal/parser"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"doubled close", `[{"action":"unknown"}]]`, `[{"action":"unknown"}]`},
		{"clean input untouched", `[{"action":"unknown"}]`, `[{"action":"unknown"}]`},
		{"empty", "", ""},
		{"other defects left alone", `[{"action":"addLine",}`, `[{"action":"addLine",}`},
		{"tripled close collapses once", `]]]`, `]]`},
		{"string values are not exempt", `[{"data":{"description":"Part [[A]]"}}]`, `[{"data":{"description":"Part [[A]"}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parser.Sanitize(tt.in))
		})
	}
}

func TestFixes_Named(t *testing.T) {
	for _, f := range parser.Fixes {
		assert.NotEmpty(t, f.Name)
		assert.NotNil(t, f.Apply)
	}
}
