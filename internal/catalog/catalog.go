// Package catalog finds dataset files under a study directory.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"trialscope/internal/ingest"
)

type Entry struct {
	Path        string // absolute
	Rel         string // relative to the catalog root, slash separated
	Folder      string // Rel's directory, "." at the root
	Size        int64
	Format      ingest.Format
	Compression ingest.Compression
}

func (e Entry) Name() string { return filepath.Base(e.Path) }

// Source opens the entry for loading.
func (e Entry) Source() (*ingest.File, error) {
	return ingest.NewFile(e.Path, e.Format)
}

type Options struct {
	Pattern  string   // doublestar pattern relative to the root
	Exclude  []string // doublestar patterns matched against Rel
	MaxFiles int      // 0 = unlimited
}

type Catalog struct {
	Root    string
	Entries []Entry
}

// Discover globs dir for dataset files. Matches whose format cannot be
// inferred from the name are skipped. Entries are grouped by folder, root
// first, and sorted by path inside a folder.
func Discover(dir string, opts Options) (*Catalog, error) {
	if opts.Pattern == "" {
		return nil, errors.New("catalog: pattern is required")
	}
	if !doublestar.ValidatePattern(opts.Pattern) {
		return nil, fmt.Errorf("catalog: invalid pattern %q", opts.Pattern)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	matches, err := doublestar.Glob(os.DirFS(root), opts.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("pattern matching failed: %w", err)
	}
	sort.Strings(matches)
	c := &Catalog{Root: root}
	for _, rel := range matches {
		if excluded(rel, opts.Exclude) {
			continue
		}
		format, ok := ingest.FormatFromName(rel)
		if !ok {
			continue
		}
		path := filepath.Join(root, filepath.FromSlash(rel))
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		folder := filepath.ToSlash(filepath.Dir(filepath.FromSlash(rel)))
		c.Entries = append(c.Entries, Entry{
			Path:        path,
			Rel:         rel,
			Folder:      folder,
			Size:        fi.Size(),
			Format:      format,
			Compression: ingest.CompressionFromName(rel),
		})
		if opts.MaxFiles > 0 && len(c.Entries) >= opts.MaxFiles {
			break
		}
	}
	// entries of one folder stay together so Folders and InFolder walk
	// Entries in order
	sort.SliceStable(c.Entries, func(i, j int) bool { return c.Entries[i].Folder < c.Entries[j].Folder })
	return c, nil
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// Folders returns the distinct folders in order of first appearance.
func (c *Catalog) Folders() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range c.Entries {
		if !seen[e.Folder] {
			seen[e.Folder] = true
			out = append(out, e.Folder)
		}
	}
	return out
}

// InFolder lists the entries directly inside folder.
func (c *Catalog) InFolder(folder string) []Entry {
	var out []Entry
	for _, e := range c.Entries {
		if e.Folder == folder {
			out = append(out, e)
		}
	}
	return out
}

// Find looks an entry up by its relative path or its base name. A base
// name shared by several folders is ambiguous.
func (c *Catalog) Find(name string) (Entry, error) {
	var hits []Entry
	for _, e := range c.Entries {
		if e.Rel == filepath.ToSlash(name) {
			return e, nil
		}
		if e.Name() == name {
			hits = append(hits, e)
		}
	}
	switch len(hits) {
	case 0:
		return Entry{}, fmt.Errorf("no dataset named %q under %s", name, c.Root)
	case 1:
		return hits[0], nil
	}
	return Entry{}, fmt.Errorf("%q is ambiguous: found in %s and %s", name, hits[0].Folder, hits[1].Folder)
}
