// Package extract finds import-like references in source text using
// per-language regex tables. It deliberately avoids real parsing: the
// output is a candidate list for the resolver, not a ground truth.
package extract

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

type Language struct {
	Name       string
	Extensions []string
	// Family lists extensions the resolver may append when completing a
	// bare token into a concrete file path.
	Family   []string
	Patterns []*regexp.Regexp
}

type Registry struct {
	byExt map[string]*Language
}

func NewRegistry() *Registry {
	return NewRegistryWith(defaultLanguages)
}

func NewRegistryWith(languages []*Language) *Registry {
	r := &Registry{byExt: make(map[string]*Language)}
	for _, lang := range languages {
		for _, ext := range lang.Extensions {
			r.byExt[strings.ToLower(ext)] = lang
		}
	}
	return r
}

func (r *Registry) LanguageForPath(path string) (*Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := r.byExt[ext]
	return lang, ok
}

func (r *Registry) IsSupportedPath(path string) bool {
	_, ok := r.LanguageForPath(path)
	return ok
}

// Extensions returns every extension the registry recognizes, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

type match struct {
	offset int
	token  string
}

// Imports returns raw import tokens from src in first-occurrence order.
// Files with no recognized extension yield nil. Duplicates within one
// file are preserved; the resolver deduplicates per edge.
func (r *Registry) Imports(path string, src []byte) []string {
	lang, ok := r.LanguageForPath(path)
	if !ok {
		return nil
	}
	return Imports(lang, src)
}

func Imports(lang *Language, src []byte) []string {
	if lang == nil || len(src) == 0 {
		return nil
	}

	var matches []match
	for _, pattern := range lang.Patterns {
		for _, loc := range pattern.FindAllSubmatchIndex(src, -1) {
			// First non-empty capture group wins, as the alternations
			// put the interesting path in exactly one group.
			for g := 1; g*2 < len(loc); g++ {
				start, end := loc[g*2], loc[g*2+1]
				if start < 0 || start >= end {
					continue
				}
				token := strings.TrimSpace(string(src[start:end]))
				if token != "" {
					matches = append(matches, match{offset: loc[0], token: token})
				}
				break
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].offset < matches[j].offset
	})

	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m.token)
	}
	return tokens
}
