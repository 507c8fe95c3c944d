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

package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/streadway/amqp"

	"github.com/osmandapp/indexd/catalog"
	"github.com/osmandapp/indexd/config"
)

const defaultDialTimeout = 10 * time.Second

// Message is the body published after each catalog regeneration
type Message struct {
	Cycle          string    `json:"cycle"`
	Path           string    `json:"path"`
	CompressedPath string    `json:"compressed_path"`
	Packages       int       `json:"packages"`
	Started        time.Time `json:"started"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

func NewMessage(res *catalog.Result) Message {
	return Message{
		Cycle:          res.Cycle,
		Path:           res.Path,
		CompressedPath: res.CompressedPath,
		Packages:       res.Packages,
		Started:        res.Started.UTC(),
		ElapsedSeconds: res.Elapsed.Seconds(),
	}
}

// Publisher announces new catalogs on an AMQP fanout exchange
type Publisher struct {
	conf *config.NotifyConfig
}

func New(conf *config.NotifyConfig) *Publisher {
	return &Publisher{conf: conf}
}

// Notify publishes a message describing res and waits for the broker to
// confirm it
func (p *Publisher) Notify(ctx context.Context, res *catalog.Result) error {
	blob, err := json.Marshal(NewMessage(res))
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		MessageId:    res.Cycle,
		Body:         blob,
	}
	conn, err := Connect(ctx, p.conf)
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(p.conf.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.Confirm(false); err != nil {
		return err
	}
	notify := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	if err := ch.Publish(p.conf.Exchange, p.conf.RoutingKey, false, false, msg); err != nil {
		return err
	}
	select {
	case confirm := <-notify:
		if !confirm.Ack {
			return errors.New("message was NACKed")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect to the configured AMQP broker
func Connect(ctx context.Context, conf *config.NotifyConfig) (*amqp.Connection, error) {
	uri, err := amqp.ParseURI(conf.URL)
	if err != nil {
		return nil, err
	}
	var tconf *tls.Config
	if uri.Scheme == "amqps" {
		tconf = &tls.Config{MinVersion: tls.VersionTLS12}
		if conf.CaCert != "" {
			pool, err := loadCertPool(conf.CaCert)
			if err != nil {
				return nil, err
			}
			tconf.RootCAs = pool
		}
	}
	timeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	qconf := amqp.Config{
		TLSClientConfig: tconf,
		Dial:            amqp.DefaultDial(timeout),
	}
	return amqp.DialConfig(conf.URL, qconf)
}

func loadCertPool(path string) (*x509.CertPool, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(blob) {
		return nil, fmt.Errorf("%s: no certificates found", path)
	}
	return pool, nil
}
