package notify

import "strings"

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// appleScriptString quotes s as an AppleScript string literal. AppleScript
// only understands \\ and \" inside literals; everything else, including
// newlines and non-ASCII text, is passed through as is.
func appleScriptString(s string) string {
	return `"` + appleScriptEscaper.Replace(s) + `"`
}
