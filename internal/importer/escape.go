package importer

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// escapeIdent re-encodes a source name into an identifier legal in both
// target languages. The mapping is deterministic: the same input always
// produces the same identifier. It is not injective: a name that literally
// contains "_u002b" collides with one containing '+'. Linkage never rides on
// the escaped form; mangled symbols do that, and the original name is kept
// on the item.
func escapeIdent(name string) string {
	if name == "" {
		return "_"
	}
	name = norm.NFC.String(name)
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_u%04x", r)
		}
	}
	return b.String()
}

// paramIdent names a parameter for generated code. Unnamed parameters get
// stable positional names.
func paramIdent(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("__param_%d", index)
	}
	return escapeIdent(name)
}
