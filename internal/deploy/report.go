package deploy

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"xnet.company/lockup/internal/types"
)

// FormatReport renders the new-deploys report: one line per deployment,
// fields separated by spaces.
func FormatReport(deployed []types.Deployment) []byte {
	var buf bytes.Buffer
	for _, d := range deployed {
		buf.WriteString(strings.Join(d.ReportFields(), " "))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteReport replaces the report at path.
func WriteReport(path string, deployed []types.Deployment) error {
	if err := os.WriteFile(path, FormatReport(deployed), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
