package models

// Band classifies a similarity score into a discrete confidence band.
type Band string

const (
	// BandVeryHigh means a near-certain rename within the same package.
	BandVeryHigh Band = "VERY_HIGH"
	// BandHigh means a strong match.
	BandHigh Band = "HIGH"
	// BandMedium is the lowest band eligible for automatic remediation.
	BandMedium Band = "MEDIUM"
	// BandLow means a weak match, reported but never auto-applied.
	BandLow Band = "LOW"
	// BandVeryLow means the candidate is almost certainly unrelated.
	BandVeryLow Band = "VERY_LOW"
)

// Valid returns true if the band is a known value.
func (b Band) Valid() bool {
	switch b {
	case BandVeryHigh, BandHigh, BandMedium, BandLow, BandVeryLow:
		return true
	default:
		return false
	}
}

// AtLeast returns true if b is equal to or stronger than other.
func (b Band) AtLeast(other Band) bool {
	return b.rank() >= other.rank()
}

func (b Band) rank() int {
	switch b {
	case BandVeryHigh:
		return 5
	case BandHigh:
		return 4
	case BandMedium:
		return 3
	case BandLow:
		return 2
	case BandVeryLow:
		return 1
	default:
		return 0
	}
}

// SimilarityCandidate is one potential replacement file for a broken
// evidence path, with its similarity breakdown.
type SimilarityCandidate struct {
	// Path is the candidate file, relative to the repository root.
	Path string `json:"path"`
	// FilenameSim measures leaf-filename similarity in [0,1].
	FilenameSim float64 `json:"filename_sim"`
	// KeywordSim measures token-set overlap in [0,1].
	KeywordSim float64 `json:"keyword_sim"`
	// DirSim measures shared directory segments in [0,1].
	DirSim float64 `json:"dir_sim"`
	// ExtSim is 1.0 for identical extensions, else 0.0.
	ExtSim float64 `json:"ext_sim"`
	// Score is the combined weighted similarity.
	Score float64 `json:"score"`
	// SamePackage is true if the candidate sits in the same logical
	// package as the expected path.
	SamePackage bool `json:"same_package"`
	// Band is the discrete classification of Score.
	Band Band `json:"band"`
}

// AutoFix is a remediation decision that can be applied mechanically:
// exactly one qualifying candidate, no ambiguity.
type AutoFix struct {
	// TaskID is the task whose evidence path is being repaired.
	TaskID string `json:"task_id"`
	// OldPath is the broken evidence path.
	OldPath string `json:"old_path"`
	// NewPath is the replacement path.
	NewPath string `json:"new_path"`
	// Band records how confident the match was.
	Band Band `json:"band"`
}

// ManualReview is a remediation decision requiring a human choice between
// near-tied candidates.
type ManualReview struct {
	// TaskID is the task whose evidence path is ambiguous.
	TaskID string `json:"task_id"`
	// OldPath is the broken evidence path.
	OldPath string `json:"old_path"`
	// Candidates holds the qualifying candidates ranked by score.
	Candidates []SimilarityCandidate `json:"candidates"`
}

// RemediationDecision is the outcome for one task that required
// remediation: exactly one of Fix or Review is set. A task with zero
// qualifying candidates produces no decision and is reported unresolved.
type RemediationDecision struct {
	// Fix is set when the path can be repaired automatically.
	Fix *AutoFix `json:"fix,omitempty"`
	// Review is set when candidates are ambiguous.
	Review *ManualReview `json:"review,omitempty"`
}
