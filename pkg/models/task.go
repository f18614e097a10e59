package models

// TaskStatus is the aggregate verification outcome for one task.
type TaskStatus string

const (
	// StatusVerified indicates all evidence hooks met the confidence bar.
	StatusVerified TaskStatus = "verified"
	// StatusNotVerified indicates at least one hook failed to verify.
	StatusNotVerified TaskStatus = "not_verified"
	// StatusNeedsManual indicates a hook could not be verified mechanically.
	StatusNeedsManual TaskStatus = "needs_manual"
	// StatusMissingHooks indicates the task carries no evidence lines.
	StatusMissingHooks TaskStatus = "missing_hooks"
	// StatusInvalidScope indicates a malformed or out-of-root hook.
	StatusInvalidScope TaskStatus = "invalid_scope"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusVerified, StatusNotVerified, StatusNeedsManual,
		StatusMissingHooks, StatusInvalidScope:
		return true
	default:
		return false
	}
}

// Confidence is the discrete strength of a verification signal.
type Confidence string

const (
	// ConfidenceLow means the evidence could not be located.
	ConfidenceLow Confidence = "low"
	// ConfidenceMedium means the evidence file exists but no strong
	// matcher was satisfied.
	ConfidenceMedium Confidence = "medium"
	// ConfidenceHigh means a strong matcher was evaluated and satisfied.
	ConfidenceHigh Confidence = "high"
)

// Valid returns true if the confidence is a known value.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	default:
		return false
	}
}

// AtLeast returns true if c is equal to or stronger than other.
func (c Confidence) AtLeast(other Confidence) bool {
	return c.rank() >= other.rank()
}

func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// HookScope classifies whether a hook is well-formed and within allowed
// bounds.
type HookScope string

const (
	// ScopeOK means the hook is well-formed and could be evaluated.
	ScopeOK HookScope = "ok"
	// ScopeNeedsManual means the hook is structurally unverifiable.
	ScopeNeedsManual HookScope = "needs_manual"
	// ScopeInvalid means the hook failed to parse.
	ScopeInvalid HookScope = "invalid"
	// ScopeInvalidScope means the hook's type is unknown or its path
	// escapes the repository root.
	ScopeInvalidScope HookScope = "invalid_scope"
)

// VerificationResult is the outcome of evaluating a single evidence hook.
type VerificationResult struct {
	// Matched is true if the hook's matchers were satisfied.
	Matched bool `json:"matched"`
	// Scope classifies the hook's well-formedness.
	Scope HookScope `json:"scope"`
	// Confidence is the strength of the match.
	Confidence Confidence `json:"confidence"`
	// Excerpt is a bounded snippet of the matched content for auditing.
	Excerpt string `json:"excerpt,omitempty"`
	// Detail explains a degraded or failed evaluation (scan bound hit,
	// probe I/O error, parse error). Never empty for unmatched hooks.
	Detail string `json:"detail,omitempty"`
}

// TaskRecord is one task entry parsed from the task document, together with
// its verification outcome. Records live for a single run; nothing is
// persisted between runs.
type TaskRecord struct {
	// ID is the task identifier, unique within a run.
	ID string `json:"task_id"`
	// Title is the task's short description.
	Title string `json:"title"`
	// Checked is the checkbox state as written. It is non-authoritative:
	// verification never trusts it.
	Checked bool `json:"checked"`
	// Verified mirrors Status == verified, so report consumers get the
	// pass/fail answer without re-deriving it from Status.
	Verified bool `json:"verified"`
	// Evidence holds the task's evidence hooks in document order.
	Evidence []EvidenceHook `json:"evidence"`
	// Results holds one verification result per evidence hook, populated
	// during verification and parallel to Evidence.
	Results []VerificationResult `json:"results,omitempty"`
	// Status is the aggregate verification outcome.
	Status TaskStatus `json:"status"`
	// Confidence is the weakest confidence among the task's hooks.
	Confidence Confidence `json:"confidence"`
	// SuggestedHooks holds hook templates offered when the task did not
	// verify, to guide manual evidence authoring.
	SuggestedHooks []string `json:"suggested_hooks,omitempty"`
	// Line is the 1-based line number of the task entry in the document.
	Line int `json:"-"`
}
