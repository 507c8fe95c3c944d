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

package zhttp

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/osmandapp/indexd/internal/logrotate"
)

type ctxKey int

var ctxAccessCallbacks ctxKey = 1

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00" // RFC3339 with 3 decimal places, padded

// SetupLogging initializes zerolog with reasonable defaults. If logFile names
// a file, the returned writer can be used to reopen it after rotation.
func SetupLogging(levelName, logFile string) (*logrotate.Writer, error) {
	zerolog.TimeFieldFormat = rfc3339Milli
	zerolog.DurationFieldInteger = true
	var rotator *logrotate.Writer
	switch logFile {
	case "-":
		// write JSON to stderr
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "":
		// write pretty text to stderr
		log.Logger = log.Logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	default:
		// write JSON to file
		w, err := logrotate.NewWriter(logFile)
		if err != nil {
			return nil, fmt.Errorf("log_file: %w", err)
		}
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		rotator = w
	}
	if levelName == "" {
		levelName = zerolog.InfoLevel.String()
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	log.Logger = log.Logger.Level(level)
	// pass stdlib logger through
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
	return rotator, nil
}

// LoggingMiddleware attaches a request-scoped logger to each request and emits
// an access log entry once it completes. Requests for the given quiet paths,
// such as health probes, are not logged.
func LoggingMiddleware(logger zerolog.Logger, quiet ...string) func(http.Handler) http.Handler {
	return loggingMiddleware(logger, time.Now, quiet)
}

func loggingMiddleware(logger zerolog.Logger, now func() time.Time, quiet []string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			reqLogger := logger.With().
				Str("ip", StripPort(req.RemoteAddr)).
				Str("req_id", req.Header.Get("X-Request-Id")).
				Logger()
			var callbacks []AccessLogCallback
			ctx := reqLogger.WithContext(req.Context())
			ctx = context.WithValue(ctx, ctxAccessCallbacks, &callbacks)
			start := now()
			lw := &Logger{ResponseWriter: rw, Now: now}
			req = req.WithContext(ctx)
			next.ServeHTTP(lw, req)
			if skip[req.URL.Path] && lw.Status() < 400 {
				return
			}
			ev := zerolog.Ctx(ctx).Info().
				Str("method", req.Method).
				Stringer("url", req.URL).
				Int("status", lw.Status()).
				Int64("len", lw.Length()).
				Dur("dur", now().Sub(start)).
				Str("ua", req.UserAgent())
			for _, cb := range callbacks {
				cb(ev)
			}
			ev.Send()
		})
	}
}

type AccessLogCallback func(*zerolog.Event)

// AppendAccessLog adds a callback function which will be invoked to amend the
// access log with additional fields.
func AppendAccessLog(req *http.Request, f AccessLogCallback) {
	callbacks, _ := req.Context().Value(ctxAccessCallbacks).(*[]AccessLogCallback)
	if callbacks != nil {
		*callbacks = append(*callbacks, f)
	}
}

// StripPort returns just the IP part from e.g. Request.RemoteAddr
func StripPort(clientIP string) string {
	i := strings.IndexByte(clientIP, ':')
	j := strings.IndexByte(clientIP, ']')
	if j > 1 && clientIP[0] == '[' {
		// [fe80::]:1234
		return clientIP[1:j]
	} else if i > 0 && strings.Count(clientIP, ":") == 1 {
		// 127.0.0.1:1234
		return clientIP[:i]
	}
	return clientIP
}
