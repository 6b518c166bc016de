// Package snapshot stores and reads raw dataset rows on disk so runs can be
// repeated without the network.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
	"github.com/KaramelBytes/scorecorr-cli/internal/utils"
)

// Decoder reads a snapshot file format.
type Decoder interface {
	CanDecode(filename string) bool
	Decode(path string) ([]dataset.Record, error)
}

var registry []Decoder

// Register adds a decoder to the registry.
func Register(d Decoder) {
	registry = append(registry, d)
}

func init() {
	Register(jsonDecoder{})
	Register(csvDecoder{})
	Register(xlsxDecoder{})
}

// ErrNotFound indicates no snapshot file exists for a dataset.
var ErrNotFound = errors.New("snapshot not found")

// extensions are tried in order when locating a snapshot.
var extensions = []string{".json", ".csv", ".xlsx"}

// Dir is a directory of snapshot files named after dataset identifiers.
type Dir struct {
	Path string
}

// Locate returns the snapshot file for a dataset.
func (d Dir) Locate(datasetID string) (string, error) {
	for _, ext := range extensions {
		p := filepath.Join(d.Path, datasetID+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNotFound, datasetID, d.Path)
}

// Fetch reads up to limit rows of a dataset snapshot.
func (d Dir) Fetch(ctx context.Context, datasetID string, limit int) ([]dataset.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.Locate(datasetID)
	if err != nil {
		return nil, err
	}
	recs, err := DecodeFile(p)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Save writes rows as <Path>/<datasetID>.json and returns the file path.
func (d Dir) Save(datasetID string, recs []dataset.Record) (string, error) {
	if err := utils.EnsureDir(d.Path); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	b, err := utils.PrettyJSON(recs)
	if err != nil {
		return "", err
	}
	p := filepath.Join(d.Path, datasetID+".json")
	if err := utils.SafeWriteFile(p, b); err != nil {
		return "", err
	}
	return p, nil
}

// DecodeFile selects a decoder by file name.
func DecodeFile(path string) ([]dataset.Record, error) {
	for _, dec := range registry {
		if dec.CanDecode(path) {
			recs, err := dec.Decode(path)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
			}
			return recs, nil
		}
	}
	return nil, fmt.Errorf("unsupported snapshot format: %s", filepath.Base(path))
}
