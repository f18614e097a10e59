// Package probe answers read-only, bounded queries against a repository
// file tree. It exposes a small closed capability set: path existence,
// substring search, regex search, symbol lookup, and markdown-heading
// lookup. Every query is confined to the configured root and bounded by
// configured file, byte, and wall-clock limits.
package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taskaudit/taskaudit/internal/config"
)

// Probe runs read-only queries against one repository root. The file-open
// counter spans the Probe's lifetime, so every query in one run draws from
// the same file budget. A single Probe is safe for concurrent use.
type Probe struct {
	root   string
	limits config.LimitsConfig
	logger *zap.Logger
	opened atomic.Int64
}

// New creates a Probe rooted at root. The root must exist; it is resolved
// through symlinks once so later escape checks compare real paths.
func New(root string, limits config.LimitsConfig, logger *zap.Logger) (*Probe, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root %s is not a directory", root)
	}
	return &Probe{root: resolved, limits: limits, logger: logger}, nil
}

// Root returns the resolved repository root.
func (p *Probe) Root() string { return p.root }

// Limits returns the scan limits the probe enforces.
func (p *Probe) Limits() config.LimitsConfig { return p.limits }

// PathExists reports whether the path resolves to a regular file inside
// the root. A path escaping the root returns a ScopeError.
func (p *Probe) PathExists(ctx context.Context, rel string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	abs, err := p.resolve(rel)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &IOError{Path: rel, Err: err}
	}
	return info.Mode().IsRegular(), nil
}

// Contains reports whether the file at rel contains the literal substring.
// On a match it returns a bounded excerpt of the matching line.
func (p *Probe) Contains(ctx context.Context, rel, substring string) (bool, string, error) {
	content, err := p.read(ctx, rel)
	if err != nil {
		return false, "", err
	}
	idx := strings.Index(content, substring)
	if idx < 0 {
		return false, "", nil
	}
	return true, p.excerptAt(content, idx), nil
}

// MatchesRegex reports whether the file at rel matches the regular
// expression pattern. An invalid pattern is reported as an error distinct
// from "not matched" so the scorer can surface it.
func (p *Probe) MatchesRegex(ctx context.Context, rel, pattern string) (bool, string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, "", fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	content, err := p.read(ctx, rel)
	if err != nil {
		return false, "", err
	}
	loc := re.FindStringIndex(content)
	if loc == nil {
		return false, "", nil
	}
	return true, p.excerptAt(content, loc[0]), nil
}

// SymbolExists reports whether the file at rel declares or references the
// identifier. The symbol must appear on an identifier boundary; "Store"
// does not match inside "Restore".
func (p *Probe) SymbolExists(ctx context.Context, rel, symbol string) (bool, string, error) {
	content, err := p.read(ctx, rel)
	if err != nil {
		return false, "", err
	}
	re := symbolPattern(symbol)
	loc := re.FindStringIndex(content)
	if loc == nil {
		return false, "", nil
	}
	return true, p.excerptAt(content, loc[0]), nil
}

// HeadingExists reports whether the markdown file at rel contains a heading
// whose text equals heading, compared case-insensitively.
func (p *Probe) HeadingExists(ctx context.Context, rel, heading string) (bool, string, error) {
	content, err := p.read(ctx, rel)
	if err != nil {
		return false, "", err
	}
	want := strings.ToLower(strings.TrimSpace(heading))
	offset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			text := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if strings.ToLower(text) == want {
				return true, p.excerptAt(content, offset), nil
			}
		}
		offset += len(line)
	}
	return false, "", nil
}

// resolve validates rel against the root and returns its absolute path.
// Absolute paths, ".." traversal, and symlinks resolving outside the root
// all produce a ScopeError.
func (p *Probe) resolve(rel string) (string, error) {
	if rel == "" {
		return "", &ScopeError{Path: rel, Reason: "empty path"}
	}
	if filepath.IsAbs(rel) {
		return "", &ScopeError{Path: rel, Reason: "absolute path"}
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &ScopeError{Path: rel, Reason: "parent-directory traversal"}
	}

	abs := filepath.Join(p.root, clean)

	// Resolve symlinks on the deepest existing ancestor so a link planted
	// anywhere along the path cannot escape the root.
	probe := abs
	for {
		resolved, err := filepath.EvalSymlinks(probe)
		if err == nil {
			if resolved != p.root && !strings.HasPrefix(resolved, p.root+string(filepath.Separator)) {
				return "", &ScopeError{Path: rel, Reason: "symlink resolves outside root"}
			}
			break
		}
		if !os.IsNotExist(err) {
			return "", &IOError{Path: rel, Err: err}
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	return abs, nil
}

// read returns the file content at rel, enforcing the file, byte and
// wall-clock bounds. Missing files surface as an IOError so callers can
// distinguish "file absent" handled by PathExists from mid-probe failures.
func (p *Probe) read(ctx context.Context, rel string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs, err := p.resolve(rel)
	if err != nil {
		return "", err
	}

	if p.limits.MaxFiles > 0 && p.opened.Add(1) > int64(p.limits.MaxFiles) {
		p.logger.Warn("probe hit file budget",
			zap.String("path", rel),
			zap.Int("max_files", p.limits.MaxFiles))
		return "", &ScanBoundError{Bound: "files"}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &IOError{Path: rel, Err: err}
	}
	if info.Size() > p.limits.MaxBytes {
		p.logger.Warn("probe skipped oversized file",
			zap.String("path", rel),
			zap.Int64("size", info.Size()),
			zap.Int64("max_bytes", p.limits.MaxBytes))
		return "", &ScanBoundError{Bound: "bytes"}
	}

	start := time.Now()
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", &IOError{Path: rel, Err: err}
	}
	if p.limits.MaxScanTime > 0 && time.Since(start) > p.limits.MaxScanTime {
		return "", &ScanBoundError{Bound: "time"}
	}
	return string(data), nil
}

// excerptAt returns the line containing offset, trimmed to the configured
// excerpt limit.
func (p *Probe) excerptAt(content string, offset int) string {
	start := strings.LastIndex(content[:offset], "\n") + 1
	end := strings.Index(content[offset:], "\n")
	if end < 0 {
		end = len(content)
	} else {
		end += offset
	}
	line := strings.TrimSpace(content[start:end])
	max := p.limits.MaxExcerpt
	if max > 0 && len(line) > max {
		line = line[:max]
	}
	return line
}

// symbolPattern builds an identifier-boundary pattern for symbol.
func symbolPattern(symbol string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^A-Za-z0-9_])` + regexp.QuoteMeta(symbol) + `([^A-Za-z0-9_]|$)`)
}
