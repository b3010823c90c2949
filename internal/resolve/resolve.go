// Package resolve turns a user's file and directory selection into the
// filekey -> local path mapping that an upload session works from.
//
// A file selected directly is uploaded under its base name. A file found
// inside a selected directory D is uploaded under its path relative to D's
// parent, so selecting /home/me/site uploads /home/me/site/css/a.css as
// "site/css/a.css". Keys always use "/" separators.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"baniusync/internal/queue"
)

// Kind tells whether a selection is a single file or a directory tree
type Kind int

const (
	File Kind = iota
	Directory
)

func (k Kind) String() string {
	if k == Directory {
		return "d"
	}
	return "f"
}

// Selection is one entry picked by the user
type Selection struct {
	Path string
	Kind Kind
}

// Mapping maps filekeys to local paths
type Mapping map[string]string

// Items returns the mapping as queue items ordered by filekey
func (m Mapping) Items() []queue.Item {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]queue.Item, 0, len(keys))
	for _, k := range keys {
		items = append(items, queue.Item{Filekey: k, LocalPath: m[k]})
	}
	return items
}

// Resolver enumerates selections on a filesystem
type Resolver struct {
	fs billy.Filesystem
}

// New creates a resolver reading from fs
func New(fs billy.Filesystem) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve computes the filekey mapping for the selections.
// Directories are expanded first, in selection order, then directly selected
// files are added. When two files produce the same filekey the one processed
// last wins. Missing or unreadable paths are not reported here; they fail
// later when a worker opens them.
func (r *Resolver) Resolve(selections []Selection) Mapping {
	out := make(Mapping)

	for _, sel := range selections {
		if sel.Kind != Directory {
			continue
		}
		root := filepath.Clean(sel.Path)
		for _, file := range r.listFiles(root) {
			key, err := DirFilekey(root, file)
			if err != nil {
				continue
			}
			out[key] = file
		}
	}

	for _, sel := range selections {
		if sel.Kind != File {
			continue
		}
		out[FileFilekey(sel.Path)] = sel.Path
	}

	return out
}

// listFiles recursively collects every file below root. The root itself is
// resolved with Stat so a selected directory may be a symlink; entries below
// it are walked without following symlinked directories.
func (r *Resolver) listFiles(root string) []string {
	var files []string

	info, err := r.fs.Stat(root)
	if err != nil || !info.IsDir() {
		return nil
	}
	entries, err := r.fs.ReadDir(root)
	if err != nil {
		return nil
	}

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, statErr := r.fs.Stat(path)
			if statErr != nil || target.IsDir() {
				return nil
			}
		}
		files = append(files, path)
		return nil
	}

	for _, entry := range entries {
		_ = util.Walk(r.fs, r.fs.Join(root, entry.Name()), walkFn)
	}

	return files
}

// FileFilekey is the filekey of a directly selected file
func FileFilekey(path string) string {
	return filepath.Base(path)
}

// DirFilekey is the filekey of file found inside the selected directory root
func DirFilekey(root, file string) (string, error) {
	parent := filepath.Dir(filepath.Clean(root))
	rel, err := filepath.Rel(parent, file)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", file, err)
	}
	return filepath.ToSlash(rel), nil
}

// Classify stats each path and builds selections from them
func (r *Resolver) Classify(paths []string) ([]Selection, error) {
	selections := make([]Selection, 0, len(paths))
	for _, p := range paths {
		info, err := r.fs.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot select %s: %w", p, err)
		}
		kind := File
		if info.IsDir() {
			kind = Directory
		}
		selections = append(selections, Selection{Path: p, Kind: kind})
	}
	return selections, nil
}
