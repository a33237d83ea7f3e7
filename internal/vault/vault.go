// Package vault reads a directory of linked markdown notes.
package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	apperrors "github.com/dygy/sonigraph/internal/errors"
)

var wikilinkRe = regexp.MustCompile(`\[\[([^\]|#]+)(?:#[^\]|]*)?(?:\|[^\]]*)?\]\]`)

// Note is one parsed markdown file
type Note struct {
	ID    string   `json:"id"`
	Path  string   `json:"path"`
	Body  string   `json:"-"`
	Tags  []string `json:"tags,omitempty"`
	Links []string `json:"links,omitempty"` // resolved note ids
}

// Vault indexes the markdown notes under a directory
type Vault struct {
	root    string
	maxSize int64
	paths   map[string]string   // id -> absolute path
	byBase  map[string][]string // lower-case base name -> ids

	graphMu sync.Mutex
	graph   map[string]map[string]bool // nil until a build completes
}

// Open indexes every markdown note under dir
func Open(dir string, maxSize int64) (*Vault, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: vault %s: %v", apperrors.ErrReadFailed, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: vault %s is not a directory", apperrors.ErrReadFailed, dir)
	}

	v := &Vault{
		root:    root,
		maxSize: maxSize,
		paths:   make(map[string]string),
		byBase:  make(map[string][]string),
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// hidden directories hold app state, not notes
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		v.paths[id] = path
		base := strings.ToLower(filepath.Base(id))
		v.byBase[base] = append(v.byBase[base], id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: index vault: %v", apperrors.ErrReadFailed, err)
	}
	for _, ids := range v.byBase {
		sort.Strings(ids)
	}
	return v, nil
}

// IDs returns every note id in sorted order
func (v *Vault) IDs() []string {
	ids := make([]string, 0, len(v.paths))
	for id := range v.paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve maps a note id or wikilink target to an indexed id. Bare names
// resolve by base name, shortest path first.
func (v *Vault) Resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(filepath.ToSlash(ref))
	ref = strings.TrimSuffix(strings.TrimSuffix(ref, ".md"), ".markdown")
	if _, ok := v.paths[ref]; ok {
		return ref, true
	}
	candidates := v.byBase[strings.ToLower(filepath.Base(ref))]
	if len(candidates) == 0 {
		return "", false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c) < len(best) {
			best = c
		}
	}
	return best, true
}

// Read loads and parses a note
func (v *Vault) Read(ctx context.Context, ref string) (*Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, ok := v.Resolve(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoteNotFound, ref)
	}
	path := v.paths[id]
	if _, err := ValidateNote(path, v.maxSize); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrReadFailed, err)
	}

	body, tags := splitFrontMatter(string(data))
	note := &Note{ID: id, Path: path, Body: body, Tags: tags}
	seen := make(map[string]bool)
	for _, m := range wikilinkRe.FindAllStringSubmatch(body, -1) {
		target, ok := v.Resolve(m[1])
		if !ok || target == id || seen[target] {
			continue
		}
		seen[target] = true
		note.Links = append(note.Links, target)
	}
	return note, nil
}

// splitFrontMatter separates a leading YAML block from the body and returns
// its tags. Malformed front matter is left in the body.
func splitFrontMatter(text string) (string, []string) {
	text = strings.TrimPrefix(text, "\ufeff")
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return text, nil
	}
	rest := text[strings.IndexByte(text, '\n')+1:]
	end := -1
	for off := 0; off < len(rest); {
		nl := strings.IndexByte(rest[off:], '\n')
		line := rest[off:]
		if nl >= 0 {
			line = rest[off : off+nl]
		}
		if strings.TrimRight(line, "\r") == "---" {
			end = off
			break
		}
		if nl < 0 {
			break
		}
		off += nl + 1
	}
	if end < 0 {
		return text, nil
	}

	var meta struct {
		Tags any `yaml:"tags"`
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return text, nil
	}

	body := rest[end:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return body, tagList(meta.Tags)
}

func tagList(raw any) []string {
	var tags []string
	add := func(s string) {
		s = strings.TrimPrefix(strings.TrimSpace(s), "#")
		if s != "" {
			tags = append(tags, s)
		}
	}
	switch t := raw.(type) {
	case string:
		for _, s := range strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' }) {
			add(s)
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	return tags
}

// Neighbors returns the notes within maxDepth links of id, following links
// in both directions, grouped by distance. The note itself is excluded.
func (v *Vault) Neighbors(ctx context.Context, ref string, maxDepth int) (map[int][]string, error) {
	id, ok := v.Resolve(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoteNotFound, ref)
	}
	graph, err := v.linkGraph(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[int][]string)
	visited := map[string]bool{id: true}
	frontier := []string{id}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			for nb := range graph[cur] {
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
				}
			}
		}
		sort.Strings(next)
		if len(next) > 0 {
			result[depth] = next
		}
		frontier = next
	}
	return result, nil
}

// linkGraph builds the undirected link graph on first use. Notes that fail to
// read are left out of the graph. A build cut short by ctx is discarded, so
// the next caller starts over.
func (v *Vault) linkGraph(ctx context.Context) (map[string]map[string]bool, error) {
	v.graphMu.Lock()
	defer v.graphMu.Unlock()
	if v.graph != nil {
		return v.graph, nil
	}

	g := make(map[string]map[string]bool, len(v.paths))
	link := func(a, b string) {
		if g[a] == nil {
			g[a] = make(map[string]bool)
		}
		g[a][b] = true
	}
	for _, id := range v.IDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		note, err := v.Read(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		for _, target := range note.Links {
			link(id, target)
			link(target, id)
		}
	}
	v.graph = g
	return g, nil
}
