package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/schedlens/schedlens/pkg/report"
)

// WriteJSON writes the section sequence as a JSON document. This is
// the wire form handed to external renderers (PDF generation and the
// like) that live outside this tool.
func WriteJSON(sections []report.Section, path string) error {
	data, err := json.MarshalIndent(sections, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal sections: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}
