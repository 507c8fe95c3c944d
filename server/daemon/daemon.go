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

package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osmandapp/indexd/catalog"
	"github.com/osmandapp/indexd/config"
	"github.com/osmandapp/indexd/internal/activation"
	"github.com/osmandapp/indexd/internal/closeonce"
	"github.com/osmandapp/indexd/server"
)

// Daemon serves the catalog over HTTP and keeps it fresh on a schedule
type Daemon struct {
	server     *server.Server
	httpServer *http.Server
	listener   net.Listener
	interval   time.Duration
	grace      time.Duration

	wg        sync.WaitGroup
	closed    closeonce.Closed
	mu        sync.Mutex
	ctx       context.Context
	stop      context.CancelFunc
	scheduler chan struct{}
}

func New(conf *config.Config, controller *catalog.Controller) (*Daemon, error) {
	srv, err := server.New(conf, controller)
	if err != nil {
		return nil, err
	}
	h2s := &http2.Server{}
	httpServer := &http.Server{
		Handler:           h2c.NewHandler(srv.Handler(), h2s),
		ReadHeaderTimeout: 30 * time.Second,
	}
	if err := http2.ConfigureServer(httpServer, h2s); err != nil {
		return nil, err
	}
	listener, err := activation.GetListener(conf.Server.Listen)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		server:     srv,
		httpServer: httpServer,
		listener:   listener,
		interval:   conf.Indexes.Interval,
		grace:      conf.Server.ShutdownTimeout,
		ctx:        ctx,
		stop:       cancel,
	}, nil
}

// Addr returns the address the daemon is listening on
func (d *Daemon) Addr() net.Addr {
	return d.listener.Addr()
}

// Serve starts the regeneration scheduler and accepts connections until Close
// is called
func (d *Daemon) Serve() error {
	d.mu.Lock()
	if d.scheduler == nil && d.ctx.Err() == nil {
		done := make(chan struct{})
		d.scheduler = done
		go func() {
			defer close(done)
			d.server.Controller.Run(d.ctx, d.interval)
		}()
	}
	d.mu.Unlock()
	if err := activation.DaemonReady(); err != nil {
		log.Warn().Err(err).Msg("failed to notify service manager")
	}
	log.Info().Stringer("addr", d.listener.Addr()).Msg("serving catalog")
	err := d.httpServer.Serve(d.listener)
	// wait for Close to finish draining
	d.wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops accepting connections, waits for in-flight requests and then
// stops the scheduler. A regeneration cycle that is underway is allowed to
// finish. Later calls return the result of the first.
func (d *Daemon) Close() error {
	// prevent Serve() from returning until the shutdown completes
	d.wg.Add(1)
	defer d.wg.Done()
	return d.closed.Close(d.shutdown)
}

func (d *Daemon) shutdown() error {
	_ = activation.DaemonStopping()
	ctx, cancel := context.WithTimeout(context.Background(), d.grace)
	defer cancel()
	err := d.httpServer.Shutdown(ctx)
	// Shutdown only closes listeners that Serve has seen
	_ = d.listener.Close()
	d.mu.Lock()
	d.stop()
	scheduler := d.scheduler
	d.mu.Unlock()
	if scheduler != nil {
		<-scheduler
	}
	return err
}
