package sweep

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/flarebyte/deopt-sweep/internal/seedfilter"
)

// SeedFile is one input artifact of the campaign.
type SeedFile struct {
	Path string `json:"path" yaml:"path"`
	Name string `json:"name" yaml:"name"`
	Stem string `json:"stem" yaml:"stem"`
	Size int64  `json:"size" yaml:"size"`
}

// SkippedEntry is a seed directory entry that did not become a SeedFile.
type SkippedEntry struct {
	Name   string `json:"name" yaml:"name"`
	Reason string `json:"reason" yaml:"reason"`
}

// SeedOptions narrow the seed set beyond the regular-file rule.
type SeedOptions struct {
	// Exclude holds gitignore-style patterns matched against entry names.
	Exclude []string
	Filter  *seedfilter.Filter
}

// EnumerateSeeds lists dir once and returns its regular files (symlinks are
// followed). Everything else is reported as skipped, never as an error.
func EnumerateSeeds(dir string, opts SeedOptions) ([]SeedFile, []SkippedEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	matcher := excludeMatcher(opts.Exclude)

	var seeds []SeedFile
	var skipped []SkippedEntry
	for _, ent := range entries {
		name := ent.Name()
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err != nil {
			skipped = append(skipped, SkippedEntry{Name: name, Reason: fmt.Sprintf("stat failed: %v", err)})
			continue
		}
		if !info.Mode().IsRegular() {
			skipped = append(skipped, SkippedEntry{Name: name, Reason: "not a regular file"})
			continue
		}
		if matcher != nil && matcher.Match([]string{name}, false) {
			skipped = append(skipped, SkippedEntry{Name: name, Reason: "excluded by pattern"})
			continue
		}
		stem, ext := SplitExt(name)
		keep, err := opts.Filter.Match(seedfilter.Attrs{Name: name, Stem: stem, Ext: ext, Size: info.Size()})
		if err != nil {
			skipped = append(skipped, SkippedEntry{Name: name, Reason: err.Error()})
			continue
		}
		if !keep {
			skipped = append(skipped, SkippedEntry{Name: name, Reason: "rejected by seed filter"})
			continue
		}
		seeds = append(seeds, SeedFile{Path: p, Name: name, Stem: stem, Size: info.Size()})
	}
	return seeds, skipped, nil
}

func excludeMatcher(patterns []string) gitignore.Matcher {
	var ps []gitignore.Pattern
	for _, line := range patterns {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	if len(ps) == 0 {
		return nil
	}
	return gitignore.NewMatcher(ps)
}

// SplitExt splits name into stem and extension. Leading dots belong to the
// stem, so ".profile" has no extension.
func SplitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.TrimLeft(name[:i], ".") == "" {
		return name, ""
	}
	return name[:i], name[i:]
}
