package parser

import "strings"

// Fix repairs one known, recurring defect in raw model output.
type Fix struct {
	Name  string
	Apply func(string) string
}

// Fixes is the complete, ordered list of repairs applied before parsing.
// Anything not listed here is left for the parser to report.
var Fixes = []Fix{
	{
		// The model sometimes echoes a schema example right before its own closing
		// bracket, leaving "]]" where a single "]" ends the array. The replacement
		// is textual, so "]]" inside a string value is collapsed too.
		Name:  "doubled-array-close",
		Apply: func(s string) string { return strings.ReplaceAll(s, "]]", "]") },
	},
}

// Sanitize applies Fixes to raw model output.
func Sanitize(raw string) string {
	out := raw
	for _, f := range Fixes {
		out = f.Apply(out)
	}
	return out
}
