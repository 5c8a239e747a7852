package expr

import "unicode/utf8"

// References returns the identifiers that source uses as variables, in
// order of first appearance and without duplicates. Whitelisted function
// names in call position are skipped.
//
// The scan tolerates malformed input: characters that do not lex are
// skipped, so a formula with a syntax error still reports the names it
// mentions. Identifiers are matched as whole tokens, never as substrings.
func References(source string) []string {
	l := newLexer(source)
	var (
		refs []string
		seen = map[string]struct{}{}
		prev *token
	)
	flush := func(next token) {
		if prev == nil {
			return
		}
		if _, isFn := functions[prev.lit]; isFn && next.typ == tokLParen {
			prev = nil
			return
		}
		if _, dup := seen[prev.lit]; !dup {
			seen[prev.lit] = struct{}{}
			refs = append(refs, prev.lit)
		}
		prev = nil
	}

	for {
		start := l.pos
		t, err := l.nextToken()
		if err != nil {
			flush(token{typ: tokOp})
			// Resume one rune past the start of the bad token.
			l.pos = start
			l.skipSpaces()
			_, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if size == 0 {
				break
			}
			l.pos += size
			continue
		}
		flush(t)
		if t.typ == tokEOF {
			break
		}
		if t.typ == tokIdentifier {
			tok := t
			prev = &tok
		}
	}
	return refs
}
