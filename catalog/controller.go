//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package catalog

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/osmandapp/indexd/lib/atomicfile"
)

const (
	DefaultIndexFile = "new_indexes.xml"
	DefaultInterval  = 15 * time.Minute
	CompressedSuffix = ".gz"

	notifyTimeout = 30 * time.Second
)

var metricWaiters = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "indexd_regeneration_waiters",
	Help: "Callers currently waiting on a catalog regeneration",
})

// State of the regeneration controller
type State int

const (
	Idle State = iota
	Regenerating
	Done
)

func (s State) String() string {
	switch s {
	case Regenerating:
		return "regenerating"
	case Done:
		return "done"
	default:
		return "idle"
	}
}

// Result describes a completed regeneration cycle
type Result struct {
	Cycle          string
	Path           string
	CompressedPath string
	Packages       int
	Started        time.Time
	Elapsed        time.Duration
}

// Status is a snapshot of the controller
type Status struct {
	State State
	Last  *Result // most recent successful cycle, nil if none yet
}

// Notifier is told about every successfully published catalog
type Notifier interface {
	Notify(ctx context.Context, res *Result) error
}

// Controller owns the catalog files under a download root. At most one
// regeneration runs at a time; callers arriving during a regeneration wait for
// it and share its result.
type Controller struct {
	root      string
	indexFile string
	scanner   *Scanner
	notifier  Notifier
	logger    zerolog.Logger
	now       func() time.Time

	group     singleflight.Group
	notifying sync.WaitGroup

	mu    sync.Mutex
	state State
	last  *Result

	// called at the start of each cycle, for tests
	onScan func()
}

type Option func(*Controller)

// WithIndexFile sets the catalog file name, relative to the root
func WithIndexFile(name string) Option {
	return func(c *Controller) { c.indexFile = name }
}

func WithScanner(s *Scanner) Option {
	return func(c *Controller) { c.scanner = s }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func New(root string, opts ...Option) *Controller {
	c := &Controller{
		root:      root,
		indexFile: DefaultIndexFile,
		logger:    log.Logger,
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.scanner == nil {
		c.scanner = NewScanner()
		c.scanner.Logger = c.logger
	}
	return c
}

// Path returns the location of the canonical catalog or its compressed copy
func (c *Controller) Path(compressed bool) string {
	p := filepath.Join(c.root, c.indexFile)
	if compressed {
		p += CompressedSuffix
	}
	return p
}

// Available reports whether both catalog files are in place and can be served
func (c *Controller) Available() bool {
	return c.published()
}

func (c *Controller) published() bool {
	for _, compressed := range []bool{false, true} {
		if st, err := os.Stat(c.Path(compressed)); err != nil || !st.Mode().IsRegular() {
			return false
		}
	}
	return true
}

// Catalog returns the path of the catalog, regenerating it first if force is
// set or if it has not been written yet. If regeneration fails but an older
// catalog exists, the older one is returned.
func (c *Controller) Catalog(ctx context.Context, force, compressed bool) (string, error) {
	path := c.Path(compressed)
	if !force && c.published() {
		return path, nil
	}
	if _, err := c.Regenerate(ctx); err != nil {
		if ctx.Err() == nil && c.published() {
			c.logger.Warn().Str("path", path).Msg("serving stale catalog")
			return path, nil
		}
		return "", err
	}
	return path, nil
}

// Refresh regenerates the catalog unconditionally. Failures are logged and
// leave the previous catalog in place.
func (c *Controller) Refresh(ctx context.Context) {
	_, _ = c.Regenerate(ctx)
}

// Run calls Refresh immediately and then again each time interval has passed
// since the previous cycle finished, until ctx is done. A cycle that is
// underway when ctx ends runs to completion, and its notification is sent,
// before Run returns.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.Refresh(context.WithoutCancel(ctx))
			t.Reset(interval)
		case <-ctx.Done():
			c.Wait()
			return
		}
	}
}

// Status returns the current state and the last successful result
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Last: c.last}
}

// Regenerate rescans the root and rewrites both catalog files, or joins a
// regeneration that is already running. The cycle itself is not cancelled
// when ctx is; only the wait for it is.
func (c *Controller) Regenerate(ctx context.Context) (*Result, error) {
	cycleCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("catalog", func() (interface{}, error) {
		return c.regenerate(cycleCtx)
	})
	metricWaiters.Inc()
	defer metricWaiters.Dec()
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until notifications for finished cycles have been delivered or
// have timed out
func (c *Controller) Wait() {
	c.notifying.Wait()
}

// notify runs after the shared cycle has handed its result to the callers
func (c *Controller) notify(ctx context.Context, logger zerolog.Logger, res *Result) {
	defer c.notifying.Done()
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := c.notifier.Notify(ctx, res); err != nil {
		logger.Err(err).Msg("failed to send catalog notification")
	}
}

func (c *Controller) setState(state State, last *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	if last != nil {
		c.last = last
	}
}

func (c *Controller) regenerate(ctx context.Context) (*Result, error) {
	res := &Result{
		Cycle:          uuid.NewString(),
		Path:           c.Path(false),
		CompressedPath: c.Path(true),
		Started:        c.now(),
	}
	logger := c.logger.With().Str("cycle", res.Cycle).Logger()
	c.setState(Regenerating, nil)
	metricScans.Inc()
	if c.onScan != nil {
		c.onScan()
	}
	descs, err := c.scanner.Scan(ctx, c.root)
	if err == nil {
		err = c.publish(descs, res.Started)
	}
	res.Elapsed = c.now().Sub(res.Started)
	if err != nil {
		c.setState(Idle, nil)
		metricRegenerations.WithLabelValues("error").Inc()
		logger.Err(err).Msg("catalog regeneration failed")
		return nil, err
	}
	res.Packages = len(descs)
	c.setState(Done, res)
	metricRegenerations.WithLabelValues("ok").Inc()
	metricDuration.Observe(res.Elapsed.Seconds())
	observePackages(descs)
	logger.Info().
		Int("packages", len(descs)).
		Str("gentime", FormatGenTime(res.Elapsed)).
		Msg("regenerated catalog")
	if c.notifier != nil {
		c.notifying.Add(1)
		go c.notify(ctx, logger, res)
	}
	return res, nil
}

// publish writes both catalog files to temporary names and renames them into
// place only once both are complete.
func (c *Controller) publish(descs []*Descriptor, started time.Time) error {
	canonical, err := atomicfile.New(c.Path(false), 0644)
	if err != nil {
		return &SerializeError{Err: err}
	}
	defer canonical.Close()
	compressed, err := atomicfile.New(c.Path(true), 0644)
	if err != nil {
		return &CompressError{Err: err}
	}
	defer compressed.Close()

	if err := Serialize(canonical, descs, c.now().Sub(started)); err != nil {
		return err
	}
	if err := compressFile(compressed, canonical.Name()); err != nil {
		return &CompressError{Err: err}
	}
	if err := canonical.Commit(); err != nil {
		return &SerializeError{Err: err}
	}
	if err := compressed.Commit(); err != nil {
		return &CompressError{Err: err}
	}
	return nil
}

// compressFile gzips the file at src into w
func compressFile(w io.Writer, src string) error {
	if src == "" {
		return errors.New("source file is closed")
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := io.Copy(zw, f); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
