// Package ident is the single choke point through which every table and
// column name must pass before it can appear in SQL text. Statement
// builders accept only the Quoted type, so there is no code path that
// concatenates a raw name into an executable statement.
package ident

import (
	"strings"
	"unicode"

	"github.com/framesync/framesync/internal/errs"
)

// maxLength bounds identifier length, matching the common server-side
// limit for object names.
const maxLength = 128

// Quoted is a pre-validated, pre-quoted SQL identifier. Downstream
// builders treat it as opaque text. The zero value is invalid; obtain one
// only through Quote.
type Quoted struct {
	name   string // original, unquoted
	quoted string // delimited form, safe to embed in SQL
}

// String returns the delimited form, e.g. `"order id"`.
func (q Quoted) String() string { return q.quoted }

// Name returns the original undelimited name.
func (q Quoted) Name() string { return q.name }

// Valid reports whether q was produced by Quote.
func (q Quoted) Valid() bool { return q.quoted != "" }

// Quote validates name and returns its double-quoted form (ANSI standard;
// Postgres and SQLite accept it natively, and MySQL sessions are opened
// with ANSI_QUOTES in sql_mode).
// Embedded delimiters are doubled. Empty names, control characters, and
// over-long names are rejected.
func Quote(name string) (Quoted, error) {
	if name == "" {
		return Quoted{}, errs.New(errs.KindInvalidIdentifier, "identifier is empty")
	}
	if len([]rune(name)) > maxLength {
		return Quoted{}, errs.Newf(errs.KindInvalidIdentifier, "identifier %q exceeds %d characters", name, maxLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return Quoted{}, errs.Newf(errs.KindInvalidIdentifier, "identifier %q contains a control character", name)
		}
	}
	return Quoted{
		name:   name,
		quoted: `"` + strings.ReplaceAll(name, `"`, `""`) + `"`,
	}, nil
}

// QuoteAll quotes every name in order, failing on the first invalid one.
func QuoteAll(names []string) ([]Quoted, error) {
	out := make([]Quoted, len(names))
	for i, n := range names {
		q, err := Quote(n)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// Unquote reverses Quote: it strips the delimiters and collapses doubled
// delimiters. It rejects text that is not a well-formed quoted identifier,
// including unescaped interior delimiters.
func Unquote(quoted string) (string, error) {
	if len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
		return "", errs.Newf(errs.KindInvalidIdentifier, "%q is not a delimited identifier", quoted)
	}
	inner := quoted[1 : len(quoted)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] != '"' {
			b.WriteByte(inner[i])
			continue
		}
		if i+1 >= len(inner) || inner[i+1] != '"' {
			return "", errs.Newf(errs.KindInvalidIdentifier, "unescaped delimiter inside %q", quoted)
		}
		b.WriteByte('"')
		i++
	}
	if b.Len() == 0 {
		return "", errs.New(errs.KindInvalidIdentifier, "identifier is empty")
	}
	return b.String(), nil
}
