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

package servecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osmandapp/indexd/cmdline/shared"
	"github.com/osmandapp/indexd/server/daemon"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the package catalog over HTTP and regenerate it periodically",
	RunE:  serveCmd,
}

var argTest bool

func init() {
	shared.RootCmd.AddCommand(ServeCmd)
	ServeCmd.Flags().BoolVarP(&argTest, "test", "t", false, "Test configuration and exit")
}

func MakeServer() (*daemon.Daemon, error) {
	if err := shared.InitConfig(); err != nil {
		return nil, err
	}
	return daemon.New(shared.CurrentConfig, shared.NewController())
}

func serveCmd(cmd *cobra.Command, args []string) error {
	srv, err := MakeServer()
	if err != nil {
		return shared.Fail(err)
	} else if argTest {
		_ = srv.Close()
		fmt.Println("OK")
		return nil
	}
	go watchSignals(srv)
	if err := srv.Serve(); err != nil {
		return shared.Fail(err)
	}
	return nil
}
