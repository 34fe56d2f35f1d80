// Package export serializes the catalog to CSV.
package export

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/Xaypanya/sniperz"
	"github.com/Xaypanya/sniperz/internal/catalog"
)

var header = []string{"title", "sourceURL", "thumbnailURL"}

// WriteCSV writes one row per record in catalog order, regardless of
// download or thumbnail status. Rows come from a single snapshot, so a
// concurrent mutation can never tear a row, and exporting an unchanged
// catalog twice yields byte-identical output.
func WriteCSV(w io.Writer, cat *catalog.Catalog) error {
	return writeRows(w, cat.Snapshot())
}

// WriteCSVFile writes the catalog to a file, creating or truncating it.
func WriteCSVFile(path string, cat *catalog.Catalog) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return WriteCSV(f, cat)
}

func writeRows(w io.Writer, records []sniperz.VideoRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write([]string{rec.Title, rec.SourceURL, rec.ThumbnailURL}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
