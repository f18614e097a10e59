package search

import (
	"fmt"
	"os"
	"path"
	"strings"

	"go.yaml.in/yaml/v3"
)

// AliasTable records which repository subtrees are considered likely
// relocation targets for each other ("auth-lib" relates to "auth-service").
// The relation is symmetric: adding a pair makes each side related to the
// other.
type AliasTable struct {
	// relations preserves insertion order per package for a deterministic
	// traversal order.
	relations map[string][]string
}

// NewAliasTable builds a table from package-path pairs.
func NewAliasTable(pairs [][2]string) *AliasTable {
	t := &AliasTable{relations: map[string][]string{}}
	for _, pair := range pairs {
		t.add(normalizePkg(pair[0]), normalizePkg(pair[1]))
		t.add(normalizePkg(pair[1]), normalizePkg(pair[0]))
	}
	return t
}

func (t *AliasTable) add(from, to string) {
	for _, existing := range t.relations[from] {
		if existing == to {
			return
		}
	}
	t.relations[from] = append(t.relations[from], to)
}

// Related returns the packages related to pkg, in table insertion order.
// When pkg itself has no entry, its ancestors are consulted nearest-first,
// so a table entry for "pkg/auth" also covers "pkg/auth/src".
func (t *AliasTable) Related(pkg string) []string {
	for cur := normalizePkg(pkg); ; {
		if rel, ok := t.relations[cur]; ok {
			out := make([]string, len(rel))
			copy(out, rel)
			return out
		}
		parent := path.Dir(cur)
		if parent == cur {
			return nil
		}
		cur = parent
	}
}

// Len returns the number of packages with at least one relation.
func (t *AliasTable) Len() int { return len(t.relations) }

// aliasFile is the shape of the related_packages section of
// .taskaudit.yaml.
type aliasFile struct {
	RelatedPackages [][]string `yaml:"related_packages"`
}

// LoadAliasFile reads the related-package pairs from a .taskaudit.yaml
// file. A missing file yields an empty table; a malformed one is a
// configuration error.
func LoadAliasFile(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewAliasTable(nil), nil
		}
		return nil, fmt.Errorf("read alias table: %w", err)
	}

	var cfg aliasFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}

	pairs := make([][2]string, 0, len(cfg.RelatedPackages))
	for i, pair := range cfg.RelatedPackages {
		if len(pair) != 2 {
			return nil, fmt.Errorf("related_packages entry %d must have exactly two paths", i)
		}
		pairs = append(pairs, [2]string{pair[0], pair[1]})
	}
	return NewAliasTable(pairs), nil
}

func normalizePkg(p string) string {
	return path.Clean(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"))
}
