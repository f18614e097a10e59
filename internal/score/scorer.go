// Package score maps (evidence hook, probe result) pairs onto discrete
// confidence levels. The rule table is deterministic and closed: existence
// alone never yields more than medium confidence, and only a satisfied
// strong matcher reaches high. No other signal elevates confidence, which
// keeps scoring auditable in isolation from the verifier.
package score

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskaudit/taskaudit/internal/probe"
	"github.com/taskaudit/taskaudit/pkg/models"
)

// Scorer evaluates evidence hooks against a repository probe.
type Scorer struct {
	probe  *probe.Probe
	logger *zap.Logger
}

// New creates a Scorer that probes through p.
func New(p *probe.Probe, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{probe: p, logger: logger}
}

// Evaluate evaluates one hook and returns its verification result. It
// never returns an error: parse failures, scope violations, scan bounds,
// and probe I/O failures all degrade into the result's scope, confidence,
// and detail fields so the run can always report them.
func (s *Scorer) Evaluate(ctx context.Context, h models.EvidenceHook) models.VerificationResult {
	if h.ParseErr != "" {
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeInvalid,
			Confidence: models.ConfidenceLow,
			Detail:     h.ParseErr,
		}
	}

	switch h.Type {
	case models.HookTypeCode, models.HookTypeTest, models.HookTypeDocs:
		return s.evaluateFile(ctx, h)
	case models.HookTypeUi:
		return s.evaluateUi(ctx, h)
	default:
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeInvalidScope,
			Confidence: models.ConfidenceLow,
			Detail:     fmt.Sprintf("unknown evidence type %q", h.RawType),
		}
	}
}

// evaluateFile scores code, test, and docs hooks.
// Rule table: path missing -> low, unmatched. Path present alone -> medium,
// matched. Path present plus every declared strong matcher satisfied ->
// high, matched. An unsatisfied strong matcher fails the claim outright.
func (s *Scorer) evaluateFile(ctx context.Context, h models.EvidenceHook) models.VerificationResult {
	path := h.Path()
	if path == "" {
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeNeedsManual,
			Confidence: models.ConfidenceLow,
			Detail:     "hook declares no path matcher",
		}
	}

	exists, err := s.probe.PathExists(ctx, path)
	if err != nil {
		return s.degrade(h, err)
	}
	if !exists {
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeOK,
			Confidence: models.ConfidenceLow,
			Detail:     fmt.Sprintf("path %s not found", path),
		}
	}

	if !h.HasStrongMatcher() {
		// Bare existence caps confidence at medium.
		return models.VerificationResult{
			Matched:    true,
			Scope:      models.ScopeOK,
			Confidence: models.ConfidenceMedium,
			Detail:     "path exists; no strong matcher declared",
		}
	}

	var excerpt string
	for key, value := range h.Matchers {
		if !key.StrongFor(h.Type) {
			continue
		}
		ok, ex, err := s.evalStrong(ctx, key, path, value)
		if err != nil {
			return s.degrade(h, err)
		}
		if !ok {
			return models.VerificationResult{
				Matched:    false,
				Scope:      models.ScopeOK,
				Confidence: models.ConfidenceLow,
				Detail:     fmt.Sprintf("%s matcher not satisfied in %s", key, path),
			}
		}
		if excerpt == "" {
			excerpt = ex
		}
	}

	return models.VerificationResult{
		Matched:    true,
		Scope:      models.ScopeOK,
		Confidence: models.ConfidenceHigh,
		Excerpt:    excerpt,
	}
}

// evaluateUi scores ui hooks. A ui hook must declare a component or route
// (selector, or path when no selector is given) and interaction states
// (contains). Both verified -> high; exactly one -> medium; a hook that
// cannot be probed structurally -> needs_manual.
func (s *Scorer) evaluateUi(ctx context.Context, h models.EvidenceHook) models.VerificationResult {
	path := h.Path()
	selector := h.Matchers[models.MatcherSelector]
	states := h.Matchers[models.MatcherContains]

	if path == "" || selector == "" || states == "" {
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeNeedsManual,
			Confidence: models.ConfidenceLow,
			Detail:     "ui hook needs path, selector, and contains to be verifiable",
		}
	}

	componentOK, excerpt, err := s.probe.Contains(ctx, path, selector)
	if err != nil {
		return s.degrade(h, err)
	}
	statesOK, stateExcerpt, err := s.probe.Contains(ctx, path, states)
	if err != nil {
		return s.degrade(h, err)
	}
	if excerpt == "" {
		excerpt = stateExcerpt
	}

	switch {
	case componentOK && statesOK:
		return models.VerificationResult{
			Matched:    true,
			Scope:      models.ScopeOK,
			Confidence: models.ConfidenceHigh,
			Excerpt:    excerpt,
		}
	case componentOK || statesOK:
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeOK,
			Confidence: models.ConfidenceMedium,
			Detail:     "ui hook partially matched",
			Excerpt:    excerpt,
		}
	default:
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeOK,
			Confidence: models.ConfidenceLow,
			Detail:     fmt.Sprintf("neither selector nor states found in %s", path),
		}
	}
}

// evalStrong dispatches one strong matcher to its probe capability.
func (s *Scorer) evalStrong(ctx context.Context, key models.MatcherKey, path, value string) (bool, string, error) {
	switch key {
	case models.MatcherContains:
		return s.probe.Contains(ctx, path, value)
	case models.MatcherRegex:
		return s.probe.MatchesRegex(ctx, path, value)
	case models.MatcherSymbol:
		return s.probe.SymbolExists(ctx, path, value)
	case models.MatcherHeading:
		return s.probe.HeadingExists(ctx, path, value)
	default:
		return false, "", fmt.Errorf("matcher %s is not strong", key)
	}
}

// degrade folds a probe failure into a non-fatal result. Scope escapes mark
// the hook invalid_scope; scan bounds and I/O failures degrade to "not
// matched" and are logged.
func (s *Scorer) degrade(h models.EvidenceHook, err error) models.VerificationResult {
	// A run-budget expiry surfacing mid-probe means the hook was never
	// evaluated; the task needs a human, not a failure verdict.
	if errors.Is(err, context.DeadlineExceeded) {
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeNeedsManual,
			Confidence: models.ConfidenceLow,
			Detail:     "run budget expired before this hook was probed",
		}
	}

	var scopeErr *probe.ScopeError
	if errors.As(err, &scopeErr) {
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeInvalidScope,
			Confidence: models.ConfidenceLow,
			Detail:     scopeErr.Error(),
		}
	}

	var boundErr *probe.ScanBoundError
	if errors.As(err, &boundErr) {
		s.logger.Warn("probe hit scan bound",
			zap.String("path", h.Path()),
			zap.String("bound", boundErr.Bound))
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeOK,
			Confidence: models.ConfidenceLow,
			Detail:     boundErr.Error(),
		}
	}

	var ioErr *probe.IOError
	if errors.As(err, &ioErr) {
		s.logger.Warn("probe i/o failure",
			zap.String("path", h.Path()),
			zap.Error(ioErr.Err))
		return models.VerificationResult{
			Matched:    false,
			Scope:      models.ScopeOK,
			Confidence: models.ConfidenceLow,
			Detail:     ioErr.Error(),
		}
	}

	return models.VerificationResult{
		Matched:    false,
		Scope:      models.ScopeOK,
		Confidence: models.ConfidenceLow,
		Detail:     err.Error(),
	}
}
