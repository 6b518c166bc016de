// Package run records what an analysis run read and wrote.
package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/scorecorr-cli/internal/utils"
)

const manifestFileName = "run.json"

// Manifest is persisted as run.json inside each run directory.
type Manifest struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Offline    bool      `json:"offline"`
	Sources    []Source  `json:"sources"`
	Subjects   []Subject `json:"subjects"`
	Outputs    []Output  `json:"outputs"`
	Notes      []string  `json:"notes,omitempty"`
	Error      string    `json:"error,omitempty"`

	// Not serialized: on-disk location of the run directory
	rootDir string `json:"-"`
}

// Source is one dataset read by the run.
type Source struct {
	Name      string `json:"name"`
	DatasetID string `json:"dataset_id"`
	Limit     int    `json:"limit"`
}

// Subject summarises the row counts of one exam subject.
type Subject struct {
	Name     string      `json:"name"`
	Loaded   int         `json:"loaded"`
	Kept     int         `json:"kept"`
	Groups   int         `json:"groups"`
	Excluded map[int]int `json:"excluded,omitempty"`
}

// Output is a file written by the run, relative to the run directory.
type Output struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// New constructs a run under root. Call Save() to persist.
func New(root string, now time.Time) *Manifest {
	id := uuid.NewString()
	dir := filepath.Join(root, now.UTC().Format("20060102-150405")+"-"+id[:8])
	return &Manifest{ID: id, StartedAt: now, rootDir: dir}
}

// Load reads run.json from dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	m.rootDir = dir
	return &m, nil
}

// List loads every run under root, newest first.
func List(root string) ([]*Manifest, error) {
	paths, err := utils.FindFiles(root, manifestFileName)
	if err != nil {
		return nil, err
	}
	out := make([]*Manifest, 0, len(paths))
	for _, p := range paths {
		m, err := Load(filepath.Dir(p))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// Dir returns the run directory.
func (m *Manifest) Dir() string { return m.rootDir }

// Path returns the absolute location for an output file name.
func (m *Manifest) Path(name string) string {
	return filepath.Join(m.rootDir, name)
}

// Record lists a written output file in the manifest.
func (m *Manifest) Record(kind, name string) {
	m.Outputs = append(m.Outputs, Output{Kind: kind, Path: name})
}

// Prepare creates the run directory.
func (m *Manifest) Prepare() error {
	if m.rootDir == "" {
		return errors.New("run directory not set")
	}
	if err := utils.EnsureDir(m.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	return nil
}

// Save writes run.json using atomic write.
func (m *Manifest) Save() error {
	if err := m.Prepare(); err != nil {
		return err
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(m.rootDir, manifestFileName), data)
}

// Finish stamps the end time and the failure, if any.
func (m *Manifest) Finish(now time.Time, err error) {
	m.FinishedAt = now
	if err != nil {
		m.Error = err.Error()
	}
}

// Status is "ok", "failed" or "incomplete".
func (m *Manifest) Status() string {
	switch {
	case m.Error != "":
		return "failed"
	case m.FinishedAt.IsZero():
		return "incomplete"
	}
	return "ok"
}

// Summary is a one-line description for listings.
func (m *Manifest) Summary() string {
	var subjects []string
	for _, s := range m.Subjects {
		subjects = append(subjects, fmt.Sprintf("%s %d/%d rows", s.Name, s.Kept, s.Loaded))
	}
	return strings.Join(subjects, ", ")
}
