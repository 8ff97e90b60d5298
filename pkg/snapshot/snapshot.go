// Package snapshot models externally captured dashboard imagery.
//
// Capture itself (browser automation, dashboard auth) happens outside
// this tool; SchedLens only carries opaque references through to the
// report.
package snapshot

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ref is an opaque handle to one captured dashboard image. The core
// never interprets the bytes behind it.
type Ref struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Path       string    `json:"path"`
	CapturedAt time.Time `json:"captured_at"`
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
}

// LoadDir collects image files from a capture directory as snapshot
// references, ordered by filename. A missing or empty directory yields
// no references and no error: snapshots are optional report content.
func LoadDir(dir string) ([]Ref, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var refs []Ref
	for _, entry := range entries {
		if entry.IsDir() || !imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		refs = append(refs, Ref{
			ID:         uuid.NewString(),
			Label:      strings.TrimSuffix(name, filepath.Ext(name)),
			Path:       filepath.Join(dir, name),
			CapturedAt: info.ModTime(),
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}
