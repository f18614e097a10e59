// Package similarity scores how plausibly one repository path is a renamed
// or moved version of another. Scoring is a pure function of the two paths
// and the supplied weights, so it can be property-tested over synthetic
// path pairs without touching a filesystem.
package similarity

import (
	"path"
	"strings"
	"unicode"

	"github.com/taskaudit/taskaudit/internal/config"
	"github.com/taskaudit/taskaudit/pkg/models"
)

// Score computes the similarity breakdown between the expected path and a
// candidate path. Combined score is the weighted sum
// w.Filename*filename + w.Keyword*keyword + w.Dir*dir + w.Ext*ext.
func Score(expected, candidate string, w config.WeightsConfig) models.SimilarityCandidate {
	expected = path.Clean(strings.ToLower(filepathToSlash(expected)))
	cand := path.Clean(strings.ToLower(filepathToSlash(candidate)))

	c := models.SimilarityCandidate{
		Path:        path.Clean(filepathToSlash(candidate)),
		FilenameSim: filenameSim(path.Base(expected), path.Base(cand)),
		KeywordSim:  keywordSim(expected, cand),
		DirSim:      dirSim(path.Dir(expected), path.Dir(cand)),
		ExtSim:      extSim(expected, cand),
		SamePackage: Package(expected) == Package(cand),
	}
	c.Score = w.Filename*c.FilenameSim + w.Keyword*c.KeywordSim + w.Dir*c.DirSim + w.Ext*c.ExtSim
	return c
}

// Classify derives the candidate's band from its combined score, the band
// thresholds, and the same-package flag. The mapping is monotonic in the
// score: VERY_HIGH additionally requires the same logical package.
func Classify(c *models.SimilarityCandidate, b config.BandsConfig) {
	switch {
	case c.Score >= b.VeryHigh && c.SamePackage:
		c.Band = models.BandVeryHigh
	case c.Score >= b.High:
		c.Band = models.BandHigh
	case c.Score >= b.Medium:
		c.Band = models.BandMedium
	case c.Score >= b.Low:
		c.Band = models.BandLow
	default:
		c.Band = models.BandVeryLow
	}
}

// Package returns the logical package of a path: the directory containing
// the file. Paths at the repository root share the package ".".
func Package(p string) string {
	return path.Dir(path.Clean(filepathToSlash(p)))
}

// filenameSim is a normalized edit-distance measure over leaf filenames:
// 1 - levenshtein/maxlen, so identical names score 1.0.
func filenameSim(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// keywordSim is the Jaccard overlap of the two paths' token sets. Tokens
// come from every path segment, split on separators and camelCase
// boundaries, lower-cased.
func keywordSim(a, b string) float64 {
	ta := Tokens(a)
	tb := Tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}
	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// dirSim is the ratio of shared directory segments to total distinct
// segments across both paths.
func dirSim(a, b string) float64 {
	sa := segmentSet(a)
	sb := segmentSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1.0
	}
	shared := 0
	for seg := range sa {
		if _, ok := sb[seg]; ok {
			shared++
		}
	}
	union := len(sa) + len(sb) - shared
	if union == 0 {
		return 1.0
	}
	return float64(shared) / float64(union)
}

// extSim is 1.0 for identical extensions, else 0.0.
func extSim(a, b string) float64 {
	if path.Ext(a) == path.Ext(b) {
		return 1.0
	}
	return 0.0
}

// Tokens splits a path into its lower-cased keyword set. Separators are
// the path separator, dots, underscores, hyphens, and camelCase
// boundaries.
func Tokens(p string) map[string]struct{} {
	out := map[string]struct{}{}
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			out[strings.ToLower(cur.String())] = struct{}{}
			cur.Reset()
		}
	}

	var prev rune
	for _, r := range p {
		switch {
		case r == '/' || r == '\\' || r == '.' || r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
		prev = r
	}
	flush()
	return out
}

// segmentSet returns the set of directory segments of a cleaned dir path.
func segmentSet(dir string) map[string]struct{} {
	out := map[string]struct{}{}
	if dir == "." || dir == "" || dir == "/" {
		return out
	}
	for _, seg := range strings.Split(dir, "/") {
		if seg != "" && seg != "." {
			out[seg] = struct{}{}
		}
	}
	return out
}

// levenshtein computes the edit distance between two strings with the
// classic two-row dynamic program.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// filepathToSlash normalizes Windows-style separators so scoring treats
// both forms identically.
func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
