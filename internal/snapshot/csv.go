package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
)

type csvDecoder struct{}

func (csvDecoder) CanDecode(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".csv")
}

func (csvDecoder) Decode(path string) ([]dataset.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var recs []dataset.Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(recs)+1, err)
		}
		recs = append(recs, toRecord(header, row))
	}
	return recs, nil
}

// toRecord pairs header names with cells. Empty cells are left out so they
// load as null.
func toRecord(header, row []string) dataset.Record {
	rec := make(dataset.Record, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			rec[name] = v
		}
	}
	return rec
}
