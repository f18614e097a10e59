package models

// HookType identifies the kind of evidence a hook asserts.
type HookType string

const (
	// HookTypeCode asserts evidence in implementation source files.
	HookTypeCode HookType = "code"
	// HookTypeTest asserts evidence in test files.
	HookTypeTest HookType = "test"
	// HookTypeDocs asserts evidence in documentation files.
	HookTypeDocs HookType = "docs"
	// HookTypeUi asserts evidence in UI components and their states.
	HookTypeUi HookType = "ui"
	// HookTypeUnknown marks a hook whose declared type is not recognized.
	// The owning task is reported as invalid_scope.
	HookTypeUnknown HookType = "unknown"
)

// Valid returns true if the type is one of the four recognized variants.
func (t HookType) Valid() bool {
	switch t {
	case HookTypeCode, HookTypeTest, HookTypeDocs, HookTypeUi:
		return true
	default:
		return false
	}
}

// MatcherKey names a single matcher inside an evidence hook.
type MatcherKey string

const (
	// MatcherPath points at a file relative to the repository root.
	MatcherPath MatcherKey = "path"
	// MatcherContains requires a literal substring in the file.
	MatcherContains MatcherKey = "contains"
	// MatcherRegex requires the file to match a regular expression.
	MatcherRegex MatcherKey = "regex"
	// MatcherSymbol requires a declared identifier in the file.
	MatcherSymbol MatcherKey = "symbol"
	// MatcherHeading requires a markdown heading in the file.
	MatcherHeading MatcherKey = "heading"
	// MatcherSelector names a UI component or route.
	MatcherSelector MatcherKey = "selector"
	// MatcherCommand records a command associated with the evidence.
	// It is carried through but never executed.
	MatcherCommand MatcherKey = "command"
)

// Valid returns true if the key is a known matcher.
func (k MatcherKey) Valid() bool {
	switch k {
	case MatcherPath, MatcherContains, MatcherRegex, MatcherSymbol,
		MatcherHeading, MatcherSelector, MatcherCommand:
		return true
	default:
		return false
	}
}

// StrongFor returns true if the key is a strong matcher for the given hook
// type. Only a satisfied strong matcher can raise confidence to high.
func (k MatcherKey) StrongFor(t HookType) bool {
	switch t {
	case HookTypeCode, HookTypeTest:
		return k == MatcherContains || k == MatcherRegex || k == MatcherSymbol
	case HookTypeDocs:
		return k == MatcherContains || k == MatcherRegex || k == MatcherHeading
	default:
		return false
	}
}

// EvidenceHook is a structured assertion that specific, locatable proof for
// a task exists in the repository.
type EvidenceHook struct {
	// Type is the kind of evidence being asserted.
	Type HookType `json:"type"`
	// RawType is the type token as written, preserved for reporting when
	// Type is HookTypeUnknown.
	RawType string `json:"raw_type,omitempty"`
	// Matchers maps matcher keys to their values. Duplicate keys on the
	// source line resolve to the last occurrence.
	Matchers map[MatcherKey]string `json:"matchers"`
	// Line is the 1-based line number of the evidence line in the task
	// document.
	Line int `json:"line"`
	// Raw is the original evidence line text, used by the patch applier to
	// verify the document has not changed underneath it.
	Raw string `json:"-"`
	// ParseErr holds the hook-scoped parse failure, if any. A parse error
	// invalidates this hook only, never the run.
	ParseErr string `json:"parse_error,omitempty"`
}

// Path returns the path matcher value, or "" if absent.
func (h EvidenceHook) Path() string {
	return h.Matchers[MatcherPath]
}

// HasStrongMatcher returns true if the hook declares at least one strong
// matcher for its type.
func (h EvidenceHook) HasStrongMatcher() bool {
	for k := range h.Matchers {
		if k.StrongFor(h.Type) {
			return true
		}
	}
	return false
}
