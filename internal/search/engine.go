// Package search locates plausible replacement files for a broken evidence
// path. The search is staged and bounded: first the expected path's own
// package subtree, then subtrees related to it through the alias table,
// then the remainder of the repository. A stage that produces one clear
// qualifying candidate stops the search early; near-tied candidates are
// carried forward so the planner can surface the ambiguity.
package search

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/taskaudit/taskaudit/internal/config"
	"github.com/taskaudit/taskaudit/internal/probe"
	"github.com/taskaudit/taskaudit/internal/similarity"
	"github.com/taskaudit/taskaudit/pkg/models"
)

// Stage names, in search order.
const (
	StagePackage    = "package"
	StageRelated    = "related"
	StageRepository = "repository"
)

// Result is the outcome of one candidate search.
type Result struct {
	// Candidates holds every qualifying candidate found before the search
	// stopped, ranked by score descending.
	Candidates []models.SimilarityCandidate
	// StagesScanned lists the stages that were actually scanned, in order.
	StagesScanned []string
	// FilesScanned counts the files scored across all scanned stages.
	FilesScanned int
}

// Engine runs staged candidate searches against one repository root.
type Engine struct {
	probe   *probe.Probe
	weights config.WeightsConfig
	bands   config.BandsConfig
	cfg     config.SearchConfig
	aliases *AliasTable
	logger  *zap.Logger
}

// NewEngine creates a search engine. aliases may be nil for an empty table.
func NewEngine(p *probe.Probe, sim config.SimilarityConfig, cfg config.SearchConfig, aliases *AliasTable, logger *zap.Logger) *Engine {
	if aliases == nil {
		aliases = NewAliasTable(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		probe:   p,
		weights: sim.Weights,
		bands:   sim.Bands,
		cfg:     cfg,
		aliases: aliases,
		logger:  logger,
	}
}

// FindCandidates searches for replacement files for expectedPath, which is
// expressed relative to the repository root. It returns qualifying
// candidates (MEDIUM band or above) ranked by score.
func (e *Engine) FindCandidates(ctx context.Context, expectedPath string) (*Result, error) {
	pkg := similarity.Package(expectedPath)

	stage1 := []string{pkg}
	stage2 := e.aliases.Related(pkg)

	res := &Result{}
	scanned := map[string]bool{}

	stages := []struct {
		name string
		dirs []string
	}{
		{StagePackage, stage1},
		{StageRelated, stage2},
		{StageRepository, []string{"."}},
	}

	for _, stage := range stages {
		if len(stage.dirs) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, n, err := e.scanStage(ctx, expectedPath, stage.dirs, scanned)
		if err != nil {
			return nil, err
		}
		res.StagesScanned = append(res.StagesScanned, stage.name)
		res.FilesScanned += n
		res.Candidates = append(res.Candidates, found...)

		if len(res.Candidates) > 0 {
			rank(res.Candidates)
			if len(res.Candidates) == 1 ||
				res.Candidates[0].Score-res.Candidates[1].Score > e.cfg.TieMargin {
				// One clear qualifying candidate: stop early.
				return res, nil
			}
			e.logger.Debug("ambiguous candidates, continuing search",
				zap.String("expected", expectedPath),
				zap.String("stage", stage.name))
		}
	}

	rank(res.Candidates)
	return res, nil
}

// scanStage walks the stage's directories, scoring every regular file not
// already scanned, and returns the qualifying candidates. The scan is
// bounded by the configured per-stage file limit.
func (e *Engine) scanStage(ctx context.Context, expectedPath string, dirs []string, scanned map[string]bool) ([]models.SimilarityCandidate, int, error) {
	var out []models.SimilarityCandidate
	count := 0
	root := e.probe.Root()

	for _, dir := range dirs {
		abs := filepath.Join(root, filepath.FromSlash(dir))

		err := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries degrade to "not scanned".
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.Type()&fs.ModeSymlink != 0 {
				// Symlinks are never traversed during candidate search.
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if skipDir(d.Name()) && path != abs {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if scanned[rel] {
				return nil
			}
			scanned[rel] = true

			if count >= e.cfg.StageMaxFiles {
				e.logger.Warn("search stage hit file limit",
					zap.String("dir", dir),
					zap.Int("limit", e.cfg.StageMaxFiles))
				return fs.SkipAll
			}
			count++

			c := similarity.Score(expectedPath, rel, e.weights)
			similarity.Classify(&c, e.bands)
			if c.Band.AtLeast(models.BandMedium) {
				out = append(out, c)
			}
			return nil
		})
		if err != nil {
			if err == fs.SkipAll {
				break
			}
			return nil, 0, err
		}
	}

	return out, count, nil
}

// rank sorts candidates by score descending, with path as the tiebreaker
// so output ordering is stable.
func rank(cands []models.SimilarityCandidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Path < cands[j].Path
	})
}

// skipDir filters directories that are never plausible relocation targets.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "vendor", "dist", "build":
		return true
	}
	return false
}

