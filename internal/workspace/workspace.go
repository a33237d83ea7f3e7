// Package workspace manages the directory a compose run writes its exports to.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Workspace is one output directory
type Workspace struct {
	Dir       string
	CreatedAt time.Time
	temporary bool
}

// Create opens dir, creating it if needed. An empty dir creates an isolated
// directory under the system temp directory that Cleanup removes.
func Create(dir string) (*Workspace, error) {
	ws := &Workspace{Dir: dir, CreatedAt: time.Now()}
	if dir == "" {
		tmp, err := os.MkdirTemp("", "sonigraph-*")
		if err != nil {
			return nil, fmt.Errorf("create workspace: %w", err)
		}
		ws.Dir = tmp
		ws.temporary = true
		return ws, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return ws, nil
}

// Slug turns a note id into a file name stem
func Slug(nodeID string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(nodeID) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '.':
			sb.WriteRune(r)
		case r == '/', r == '\\', unicode.IsSpace(r), r == '_':
			sb.WriteRune('_')
		}
	}
	slug := strings.Trim(sb.String(), "._")
	if slug == "" {
		return "composition"
	}
	return slug
}

// JSONPath returns the composition JSON path for a note
func (w *Workspace) JSONPath(nodeID string) string {
	return w.path(nodeID, ".json")
}

// MIDIPath returns the Standard MIDI File path for a note
func (w *Workspace) MIDIPath(nodeID string) string {
	return w.path(nodeID, ".mid")
}

// StrudelPath returns the Strudel code path for a note
func (w *Workspace) StrudelPath(nodeID string) string {
	return w.path(nodeID, ".strudel")
}

func (w *Workspace) path(nodeID, ext string) string {
	return filepath.Join(w.Dir, Slug(nodeID)+ext)
}

// WriteFile writes data to path inside the workspace
func (w *Workspace) WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Cleanup removes a temporary workspace. Directories the user named are kept.
func (w *Workspace) Cleanup() error {
	if !w.temporary {
		return nil
	}
	return os.RemoveAll(w.Dir)
}
