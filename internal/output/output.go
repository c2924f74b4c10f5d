// Package output writes artifact records as JSON lines, one file per
// artifact, plus a run manifest.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

// ManifestName is the file name of the run manifest.
const ManifestName = "manifest.json"

// Options controls how artifact files are written.
type Options struct {
	Gzip bool
}

// Sink collects artifact files under one directory. It is safe for
// concurrent use.
type Sink struct {
	fs    afero.Fs
	dir   string
	opts  Options
	runID uuid.UUID
	start time.Time
	now   func() time.Time

	mu      sync.Mutex
	written map[string]Artifact
}

// Artifact describes one written artifact file.
type Artifact struct {
	Name    string `json:"name"`
	File    string `json:"file"`
	Records int    `json:"records"`
}

// Manifest summarises a run.
type Manifest struct {
	RunID     string     `json:"run_id"`
	Started   time.Time  `json:"started"`
	Finished  time.Time  `json:"finished"`
	Artifacts []Artifact `json:"artifacts"`
}

// New creates dir on fs and returns a sink writing into it.
func New(fs afero.Fs, dir string, opts Options) (*Sink, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	s := &Sink{
		fs:      fs,
		dir:     dir,
		opts:    opts,
		runID:   uuid.New(),
		now:     func() time.Time { return time.Now().UTC() },
		written: map[string]Artifact{},
	}
	s.start = s.now()
	return s, nil
}

// RunID identifies this run in the manifest.
func (s *Sink) RunID() uuid.UUID { return s.runID }

// Dir returns the output directory.
func (s *Sink) Dir() string { return s.dir }

// FileName returns the file an artifact is written to.
func (s *Sink) FileName(artifact string) string {
	if s.opts.Gzip {
		return artifact + ".json.gz"
	}
	return artifact + ".json"
}

// Write stores records as JSON lines in the artifact's file. An empty record
// set writes nothing.
func (s *Sink) Write(artifact string, records []any) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	name := s.FileName(artifact)
	f, err := s.fs.Create(path.Join(s.dir, name))
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}

	n, werr := s.encode(f, records)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return n, fmt.Errorf("write %s: %w", name, werr)
	}

	s.mu.Lock()
	s.written[artifact] = Artifact{Name: artifact, File: name, Records: n}
	s.mu.Unlock()
	return n, nil
}

func (s *Sink) encode(w io.Writer, records []any) (int, error) {
	var zw *gzip.Writer
	if s.opts.Gzip {
		zw = gzip.NewWriter(w)
		w = zw
	}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	n := 0
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return n, err
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Manifest returns the current manifest with artifacts sorted by name.
func (s *Sink) Manifest() Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Manifest{RunID: s.runID.String(), Started: s.start, Finished: s.now(), Artifacts: []Artifact{}}
	for _, name := range slices.Sorted(maps.Keys(s.written)) {
		m.Artifacts = append(m.Artifacts, s.written[name])
	}
	return m
}

// Close writes the manifest.
func (s *Sink) Close() error {
	data, err := json.MarshalIndent(s.Manifest(), "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, path.Join(s.dir, ManifestName), append(data, '\n'), 0o644)
}
