package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/scorecorr-cli/internal/dataset"
)

type jsonDecoder struct{}

func (jsonDecoder) CanDecode(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".json")
}

func (jsonDecoder) Decode(path string) ([]dataset.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()
	var recs []dataset.Record
	if err := dec.Decode(&recs); err != nil {
		return nil, err
	}
	return recs, nil
}
