package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/record"
)

// NDJSONWriter renders one JSON object per line, the default output format.
type NDJSONWriter struct{}

func (NDJSONWriter) Write(path string, rows []record.RepositoryRecord) error {
	return atomicWrite(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetEscapeHTML(false)
		for i := range rows {
			if err := enc.Encode(&rows[i]); err != nil {
				return fmt.Errorf("write row %s: %w", rows[i].NWO, err)
			}
		}
		return nil
	})
}
