// Package resolver maps raw import tokens to module identifiers inside
// a scanned tree. Tokens that point outside the tree, or at nothing,
// resolve to no edge at all: with regex-extracted candidates that is the
// expected common case, not an error.
package resolver

import (
	"path"
	"sort"
	"strings"

	"promptpack/internal/engine/extract"
)

// entryFiles mark a directory as having a canonical entry point. A
// directory holding source files but none of these is coarsened into a
// single folder-as-module node.
var entryFiles = map[string]bool{
	"__init__.py": true,
	"index.js":    true,
	"index.jsx":   true,
	"index.ts":    true,
	"index.tsx":   true,
	"mod.rs":      true,
	"lib.rs":      true,
}

// Index is a fixed snapshot of the scanned file set. Resolution against
// it is deterministic: identical input always yields identical output.
type Index struct {
	registry *extract.Registry

	files      map[string]bool     // root-relative source file paths
	dirFiles   map[string][]string // dir -> sorted member files
	dirEntry   map[string]string   // dir -> entry file path, if any
	bySegment  map[string][]string // trailing segment -> sorted module IDs
	moduleIDs  map[string]bool
	folderMode map[string]bool
}

// NewIndex builds an index over root-relative, slash-separated source
// file paths. Paths outside the root must already be excluded.
func NewIndex(registry *extract.Registry, paths []string) *Index {
	idx := &Index{
		registry:   registry,
		files:      make(map[string]bool, len(paths)),
		dirFiles:   make(map[string][]string),
		dirEntry:   make(map[string]string),
		bySegment:  make(map[string][]string),
		moduleIDs:  make(map[string]bool),
		folderMode: make(map[string]bool),
	}

	for _, p := range paths {
		p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
		if p == "" || p == "." || strings.HasPrefix(p, "..") {
			continue
		}
		idx.files[p] = true
		dir := path.Dir(p)
		idx.dirFiles[dir] = append(idx.dirFiles[dir], p)
		if entryFiles[path.Base(p)] {
			if existing, ok := idx.dirEntry[dir]; !ok || p < existing {
				idx.dirEntry[dir] = p
			}
		}
	}

	for dir, files := range idx.dirFiles {
		sort.Strings(files)
		_, hasEntry := idx.dirEntry[dir]
		// The root directory never collapses into one module.
		idx.folderMode[dir] = !hasEntry && dir != "."
	}

	// Module identifiers: folder-mode dirs plus files that stand alone.
	for dir, mode := range idx.folderMode {
		if mode {
			idx.moduleIDs[dir] = true
		}
	}
	for p := range idx.files {
		if !idx.folderMode[path.Dir(p)] {
			idx.moduleIDs[p] = true
		}
	}
	// Trailing-segment lookup covers module identifiers and the stems
	// of files owned by folder modules, so namespaced imports can land
	// on the folder that holds the named file.
	segmentSets := make(map[string]map[string]bool)
	addSegment := func(seg, id string) {
		if seg == "" {
			return
		}
		if segmentSets[seg] == nil {
			segmentSets[seg] = make(map[string]bool)
		}
		segmentSets[seg][id] = true
	}
	for id := range idx.moduleIDs {
		addSegment(lastSegment(id), id)
	}
	for p := range idx.files {
		addSegment(lastSegment(p), idx.ModuleFor(p))
	}
	for seg, set := range segmentSets {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		idx.bySegment[seg] = ids
	}

	return idx
}

// ModuleFor returns the module identifier owning a source file: the
// containing directory when that directory is folder-as-module, the
// file path itself otherwise.
func (idx *Index) ModuleFor(filePath string) string {
	filePath = path.Clean(strings.ReplaceAll(filePath, "\\", "/"))
	dir := path.Dir(filePath)
	if idx.folderMode[dir] {
		return dir
	}
	return filePath
}

// IsFolderModule reports whether id names a folder-as-module node.
func (idx *Index) IsFolderModule(id string) bool {
	return idx.folderMode[id]
}

// FilesOf returns the source files belonging to a module identifier.
func (idx *Index) FilesOf(id string) []string {
	if idx.folderMode[id] {
		return idx.dirFiles[id]
	}
	if idx.files[id] {
		return []string{id}
	}
	return nil
}

// Resolve maps a raw token from the importing file to zero or one
// module identifier. The second return is false when the token points
// outside the tree or at nothing.
func (idx *Index) Resolve(token, fromFile string) (string, bool) {
	fromFile = path.Clean(strings.ReplaceAll(fromFile, "\\", "/"))
	fromDir := path.Dir(fromFile)
	lang, _ := idx.registry.LanguageForPath(fromFile)

	candidates := normalizeToken(token, fromDir)
	for _, candidate := range candidates {
		// (a) exact file match.
		if idx.files[candidate] {
			return idx.ModuleFor(candidate), true
		}
		// (b) extension completion within the language family.
		if lang != nil {
			for _, ext := range lang.Family {
				withExt := candidate + ext
				if idx.files[withExt] {
					return idx.ModuleFor(withExt), true
				}
			}
		}
		// (c) folder match: a directory holding source files.
		if files := idx.dirFiles[candidate]; len(files) > 0 {
			if id, ok := idx.resolveDir(candidate); ok {
				return id, true
			}
		}
	}

	// (d) package-root heuristic: trailing segment of each candidate
	// against known module identifiers; lexically smallest match keeps
	// this deterministic.
	for _, candidate := range candidates {
		seg := lastSegment(candidate)
		if seg == "" {
			continue
		}
		if ids := idx.bySegment[seg]; len(ids) > 0 {
			return ids[0], true
		}
	}

	return "", false
}

func (idx *Index) resolveDir(dir string) (string, bool) {
	if idx.folderMode[dir] {
		return dir, true
	}
	if entry, ok := idx.dirEntry[dir]; ok {
		return idx.ModuleFor(entry), true
	}
	return "", false
}
