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

package generatecmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/osmandapp/indexd/catalog"
	"github.com/osmandapp/indexd/cmdline/shared"
)

var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate the package catalog once and exit",
	RunE:  generateCmd,
}

func init() {
	shared.RootCmd.AddCommand(GenerateCmd)
}

func generateCmd(cmd *cobra.Command, args []string) error {
	if err := shared.InitConfig(); err != nil {
		return shared.Fail(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return generate(ctx, cmd, shared.NewController())
}

func generate(ctx context.Context, cmd *cobra.Command, ctl *catalog.Controller) error {
	res, err := ctl.Regenerate(ctx)
	if err != nil {
		return err
	}
	// deliver the change notification before the process exits
	ctl.Wait()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Path)
	fmt.Fprintln(out, res.CompressedPath)
	fmt.Fprintf(cmd.ErrOrStderr(), "%d packages in %ss\n", res.Packages, catalog.FormatGenTime(res.Elapsed))
	return nil
}
