// Package hook parses evidence lines from task documents into typed
// EvidenceHook records.
//
// The grammar for one evidence line is:
//
//	evidence: <type> key=value (key=value)*
//
// where <type> is one of code, test, docs, ui, and values containing
// whitespace are double-quoted. A malformed line produces a ParseError
// scoped to that hook only; it never aborts the surrounding run.
package hook

import (
	"fmt"
	"strings"

	"github.com/taskaudit/taskaudit/pkg/models"
)

// Prefix introduces an evidence line in the task document.
const Prefix = "evidence:"

// ParseError describes a malformed evidence line. It is scoped to one hook:
// the owning task is reported invalid_scope but the run continues.
type ParseError struct {
	// Line is the 1-based document line the error occurred on.
	Line int
	// Reason explains what was malformed.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("evidence parse error at line %d: %s", e.Line, e.Reason)
}

// IsEvidenceLine reports whether the trimmed line is an evidence line.
func IsEvidenceLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), Prefix)
}

// Parse parses one evidence line into an EvidenceHook. lineNum is the
// 1-based position of the line in the task document.
//
// Parse never returns a nil hook for an evidence line: malformed input
// yields a hook with ParseErr set, and an unknown type token yields a hook
// with Type models.HookTypeUnknown. Both make the owning task
// invalid_scope without failing the parse of other hooks.
func Parse(line string, lineNum int) models.EvidenceHook {
	raw := line
	trimmed := strings.TrimSpace(line)

	h := models.EvidenceHook{
		Type:     models.HookTypeUnknown,
		Matchers: map[models.MatcherKey]string{},
		Line:     lineNum,
		Raw:      raw,
	}

	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, Prefix))
	if rest == "" {
		h.ParseErr = (&ParseError{Line: lineNum, Reason: "missing evidence type"}).Error()
		return h
	}

	tokens, err := tokenize(rest, lineNum)
	if err != nil {
		h.ParseErr = err.Error()
		return h
	}

	typeToken := tokens[0]
	h.RawType = typeToken
	if t := models.HookType(strings.ToLower(typeToken)); t.Valid() {
		h.Type = t
	}

	if len(tokens) == 1 {
		h.ParseErr = (&ParseError{Line: lineNum, Reason: "evidence line has no matchers"}).Error()
		return h
	}

	for _, tok := range tokens[1:] {
		eq := strings.Index(tok, "=")
		if eq <= 0 {
			h.ParseErr = (&ParseError{Line: lineNum, Reason: fmt.Sprintf("expected key=value, got %q", tok)}).Error()
			return h
		}
		key := models.MatcherKey(strings.ToLower(tok[:eq]))
		value := tok[eq+1:]
		if !key.Valid() {
			h.ParseErr = (&ParseError{Line: lineNum, Reason: fmt.Sprintf("unknown matcher key %q", tok[:eq])}).Error()
			return h
		}
		// Duplicate keys: last occurrence wins.
		h.Matchers[key] = value
	}

	return h
}

// tokenize splits the evidence body into whitespace-separated tokens,
// honoring double quotes around (portions of) values. Quotes are stripped
// from the returned tokens. An unterminated quote is a ParseError.
func tokenize(s string, lineNum int) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	hasCur := false

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasCur = true
		case !inQuote && (r == ' ' || r == '\t'):
			if hasCur {
				tokens = append(tokens, cur.String())
				cur.Reset()
				hasCur = false
			}
		default:
			cur.WriteRune(r)
			hasCur = true
		}
	}
	if inQuote {
		return nil, &ParseError{Line: lineNum, Reason: "unbalanced quote in evidence value"}
	}
	if hasCur {
		tokens = append(tokens, cur.String())
	}
	if len(tokens) == 0 {
		return nil, &ParseError{Line: lineNum, Reason: "empty evidence body"}
	}
	return tokens, nil
}

// Format renders a hook back into canonical evidence-line form, without
// leading indentation. Values containing whitespace are quoted. Matchers
// are emitted in a stable order so formatting is deterministic.
func Format(h models.EvidenceHook) string {
	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(" ")
	if h.Type == models.HookTypeUnknown && h.RawType != "" {
		b.WriteString(h.RawType)
	} else {
		b.WriteString(string(h.Type))
	}

	for _, key := range matcherOrder {
		v, ok := h.Matchers[key]
		if !ok {
			continue
		}
		b.WriteString(" ")
		b.WriteString(string(key))
		b.WriteString("=")
		if strings.ContainsAny(v, " \t") {
			b.WriteString(`"` + v + `"`)
		} else {
			b.WriteString(v)
		}
	}
	return b.String()
}

// matcherOrder fixes the rendering order of matcher keys.
var matcherOrder = []models.MatcherKey{
	models.MatcherPath,
	models.MatcherContains,
	models.MatcherRegex,
	models.MatcherSymbol,
	models.MatcherHeading,
	models.MatcherSelector,
	models.MatcherCommand,
}
