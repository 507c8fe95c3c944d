// Copyright © SAS Institute Inc.
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

// Package activation cooperates with systemd: inheriting a socket-activated
// listener and reporting daemon state over the notify socket.
package activation

import (
	"net"
	"os"
	"strconv"
	"sync"
)

// systemd places inherited fds sequentially starting at 3
const listenFdsStart = 3

var (
	envOnce sync.Once
	envPid  string
	envFds  string
)

// GetListener returns the socket passed by systemd socket activation, if any.
// Otherwise a new TCP listener is opened on laddr.
func GetListener(laddr string) (net.Listener, error) {
	listener, err := systemdListener()
	if listener != nil || err != nil {
		return listener, err
	}
	return net.Listen("tcp", laddr)
}

// the variables are unset on first read so they do not leak into child
// processes
func popEnv() (pid, fds string) {
	envOnce.Do(func() {
		envPid = os.Getenv("LISTEN_PID")
		envFds = os.Getenv("LISTEN_FDS")
		os.Unsetenv("LISTEN_PID")
		os.Unsetenv("LISTEN_FDS")
		os.Unsetenv("LISTEN_FDNAMES")
	})
	return envPid, envFds
}

func systemdListener() (net.Listener, error) {
	pidStr, fdsStr := popEnv()
	if fdsStr == "" {
		return nil, nil
	}
	if pidStr != "" {
		pid, err := strconv.Atoi(pidStr)
		if err != nil {
			return nil, err
		} else if pid != os.Getpid() {
			// not for us
			return nil, nil
		}
	}
	nfds, err := strconv.Atoi(fdsStr)
	if err != nil || nfds < 1 {
		return nil, err
	}
	return fdListener(listenFdsStart)
}

func fdListener(fd uintptr) (net.Listener, error) {
	file := os.NewFile(fd, "FD_"+strconv.Itoa(int(fd)))
	// FileListener dupes the fd so make sure the originally inherited one gets closed
	defer file.Close()
	return net.FileListener(file)
}
