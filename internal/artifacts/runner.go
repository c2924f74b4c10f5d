package artifacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/joshuapare/artifactkit/internal/image"
	"github.com/joshuapare/artifactkit/internal/metrics"
	"github.com/joshuapare/artifactkit/internal/output"
	"github.com/joshuapare/artifactkit/pkg/event"
	"github.com/joshuapare/artifactkit/pkg/evtx"
	"github.com/joshuapare/artifactkit/pkg/hive"
	"github.com/joshuapare/artifactkit/pkg/types"
)

// Options selects what a run extracts.
type Options struct {
	// Categories limits the run; empty runs every category.
	Categories []Category
	Mode       Mode
	// Workers bounds how many extractors run at once.
	Workers int
	// ControlSet pins ControlSet00N. Zero uses Select\Current.
	ControlSet uint32
}

// Summary counts the outcome of a run.
type Summary struct {
	Artifacts int
	Records   int
	Failed    []string
}

// Runner drives the extractors over one image.
type Runner struct {
	img     *image.Image
	sink    *output.Sink
	metrics *metrics.Metrics
	env     *Env
	opts    Options

	mu      sync.Mutex
	summary Summary
}

// NewRunner returns a runner writing to sink. m may be nil.
func NewRunner(img *image.Image, sink *output.Sink, m *metrics.Metrics, env *Env, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if env == nil {
		env = &Env{}
	}
	return &Runner{img: img, sink: sink, metrics: m, env: env, opts: opts}
}

func (r *Runner) log() *slog.Logger { return r.env.logger() }

func (r *Runner) wants(c Category) bool {
	return len(r.opts.Categories) == 0 || slices.Contains(r.opts.Categories, c)
}

// Run executes every selected extractor. Failures of single extractors or
// missing sources are logged and recorded in the summary; the returned
// error is set only when ctx ends the run early.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var tasks []func()

	if r.opts.Mode != ModeEventLogs {
		bySource := map[image.Source][]RegistryExtractor{}
		for _, x := range RegistryExtractors() {
			if r.wants(x.Category) {
				bySource[x.Source] = append(bySource[x.Source], x)
			}
		}
		for _, src := range []image.Source{image.SystemHive, image.SoftwareHive} {
			xs := bySource[src]
			if len(xs) == 0 {
				continue
			}
			h, err := r.openHive(src)
			if err != nil {
				r.sourceFailed(src, names(xs, func(x RegistryExtractor) string { return x.Name }), err)
				continue
			}
			defer h.Close()
			for _, x := range xs {
				tasks = append(tasks, func() { r.runRegistry(x, h) })
			}
		}
	}

	if r.opts.Mode != ModeRegistry {
		bySource := map[image.Source][]EventExtractor{}
		for _, x := range EventExtractors() {
			if r.wants(x.Category) {
				bySource[x.Source] = append(bySource[x.Source], x)
			}
		}
		for _, src := range []image.Source{image.SecurityLog, image.SystemLog} {
			if xs := bySource[src]; len(xs) > 0 {
				tasks = append(tasks, func() { r.scanLog(ctx, src, xs) })
			}
		}
	}

	sem := make(chan struct{}, r.opts.Workers)
	var wg sync.WaitGroup
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			task()
		}()
	}
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	slices.Sort(r.summary.Failed)
	return r.summary, ctx.Err()
}

func names[T any](xs []T, name func(T) string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = name(x)
	}
	return out
}

// openHive maps the hive when it lives on the OS file system and reads it
// into memory otherwise.
func (r *Runner) openHive(src image.Source) (*hive.Hive, error) {
	path, err := r.img.Locate(src)
	if err != nil {
		return nil, err
	}
	var h *hive.Hive
	if _, ok := r.img.Fs().(*afero.OsFs); ok {
		h, err = hive.Open(path)
	} else {
		var data []byte
		if data, err = afero.ReadFile(r.img.Fs(), path); err != nil {
			return nil, &types.Error{Kind: types.ErrKindIO, Msg: "read " + path, Err: err}
		}
		h, err = hive.OpenBytes(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	if r.opts.ControlSet != 0 {
		h.SetControlSet(r.opts.ControlSet)
	} else if src == image.SystemHive {
		cs, fromSelect, err := h.ActiveControlSet()
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("%s: control set: %w", src, err)
		}
		if !fromSelect {
			r.log().Warn("no usable Select\\Current value, assuming default control set", "hive", src.String(), "control_set", cs)
		}
	}
	r.log().Debug("opened hive", "hive", src.String(), "path", path)
	return h, nil
}

func (r *Runner) runRegistry(x RegistryExtractor, h *hive.Hive) {
	start := time.Now()
	records, err := x.Extract(h, r.env)
	if err != nil {
		r.log().Error("extractor failed", "artifact", x.Name, "hive", x.Source.String(), "error", err)
	}
	// Records gathered before a failure are still written.
	r.write(x.Name, records, start, err)
}

// scanLog decodes every record of one event log once and hands it to each
// extractor of that log.
func (r *Runner) scanLog(ctx context.Context, src image.Source, xs []EventExtractor) {
	start := time.Now()
	artifacts := names(xs, func(x EventExtractor) string { return x.Name })

	f, fh, err := r.openLog(src)
	if err != nil {
		r.sourceFailed(src, artifacts, err)
		return
	}
	defer fh.Close()

	results := make([][]any, len(xs))
	var fatal error
	for rec, err := range f.Records() {
		if ctx.Err() != nil {
			fatal = ctx.Err()
			break
		}
		if err != nil {
			var re *evtx.RecordError
			if !errors.As(err, &re) {
				fatal = err
				break
			}
			r.log().Warn("skipping event record", "log", src.String(), "chunk", re.ChunkOffset, "offset", re.Offset, "error", re.Err)
			r.skipped(src)
			continue
		}
		ev, err := event.Decode(rec.XML)
		if err != nil {
			r.log().Warn("skipping undecodable event", "log", src.String(), "record", rec.ID, "error", err)
			r.skipped(src)
			continue
		}
		for i, x := range xs {
			if e, ok := x.Entry(rec, ev, r.env.Snake); ok {
				results[i] = append(results[i], e)
			}
		}
	}
	if fatal != nil {
		r.log().Error("event log scan stopped", "log", src.String(), "error", fatal)
	}
	for i, x := range xs {
		r.write(x.Name, results[i], start, fatal)
	}
}

// openLog opens an event log of the image. The caller closes the returned
// file handle once done with the reader.
func (r *Runner) openLog(src image.Source) (*evtx.File, afero.File, error) {
	path, err := r.img.Locate(src)
	if err != nil {
		return nil, nil, err
	}
	fh, err := r.img.Fs().Open(path)
	if err != nil {
		return nil, nil, &types.Error{Kind: types.ErrKindIO, Msg: "open " + path, Err: err}
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, nil, &types.Error{Kind: types.ErrKindIO, Msg: "stat " + path, Err: err}
	}
	f, err := evtx.NewReader(fh, info.Size())
	if err != nil {
		fh.Close()
		return nil, nil, fmt.Errorf("%s: %w", src, err)
	}
	return f, fh, nil
}

func (r *Runner) write(artifact string, records []any, start time.Time, err error) {
	n, werr := r.sink.Write(artifact, records)
	if werr != nil {
		r.log().Error("write failed", "artifact", artifact, "error", werr)
		err = errors.Join(err, werr)
	}
	if r.metrics != nil {
		r.metrics.Observe(artifact, n, time.Since(start), err)
	}
	r.log().Info("artifact done", "artifact", artifact, "records", n, "took", time.Since(start))

	r.mu.Lock()
	defer r.mu.Unlock()
	if n > 0 {
		r.summary.Artifacts++
		r.summary.Records += n
	}
	if err != nil {
		r.summary.Failed = append(r.summary.Failed, artifact)
	}
}

func (r *Runner) sourceFailed(src image.Source, artifacts []string, err error) {
	if types.IsKind(err, types.ErrKindNotFound) {
		r.log().Warn("source not found", "source", src.String(), "error", err)
	} else {
		r.log().Error("source unusable", "source", src.String(), "error", err)
	}
	for _, a := range artifacts {
		if r.metrics != nil {
			r.metrics.Observe(a, 0, 0, err)
		}
	}
	r.mu.Lock()
	r.summary.Failed = append(r.summary.Failed, artifacts...)
	r.mu.Unlock()
}

func (r *Runner) skipped(src image.Source) {
	if r.metrics != nil {
		r.metrics.SkippedRecord(src.String())
	}
}
