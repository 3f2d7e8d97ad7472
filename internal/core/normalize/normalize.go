// Package normalize cleans pasted moderator text before it is tokenized
// Token pipeline
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFKC normalization
// 3 Remove format characters (ZWJ ZWNJ FEFF and friends)
// 4 Width fold fullwidth to ASCII
// Line only runs steps 1 and 3 plus control removal so free text keeps its shape
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// controls drops C0/C1 controls except tab
var controls = runes.Predicate(func(r rune) bool {
	return r != '\t' && unicode.IsControl(r)
})

var tokenPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			runes.Remove(runes.In(unicode.Cf)),
			runes.Remove(controls),
			width.Fold,
		)
	},
}

var linePool = sync.Pool{
	New: func() any {
		return transform.Chain(
			runes.Remove(runes.In(unicode.Cf)),
			runes.Remove(controls),
		)
	},
}

func apply(p *sync.Pool, s string) string {
	s = strings.ToValidUTF8(s, "")
	tr := p.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	p.Put(tr)
	if err != nil {
		return s
	}
	return out
}

// Token folds an identifier token so lookalike digits and invisible
// characters do not defeat identifier matching
func Token(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(apply(&tokenPool, s))
}

// Line strips invisible and control characters from one input line
func Line(s string) string {
	if s == "" {
		return ""
	}
	return apply(&linePool, s)
}
