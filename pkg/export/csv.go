// Package export writes collected rows as CSV.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/486c/osu-topscores-scrapper/pkg/collector"
)

// Write serializes rows as CSV with a header line. Column names come from
// the csv struct tags on collector.Row.
func Write(w io.Writer, rows []collector.Row) error {
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteFile creates (or truncates) path and writes rows to it.
func WriteFile(path string, rows []collector.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	return Write(f, rows)
}
