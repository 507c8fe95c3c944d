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

package listcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/osmandapp/indexd/catalog"
	"github.com/osmandapp/indexd/cmdline/shared"
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Scan the package root and print what would be published",
	RunE:  listCmd,
}

var (
	argType string
	argJSON bool
)

func init() {
	shared.RootCmd.AddCommand(ListCmd)
	ListCmd.Flags().StringVarP(&argType, "type", "t", "", "Only list packages of this type (map, voice, depth, fonts, wiki_map, wikivoyage, road_map, hillshade, srtm_map)")
	ListCmd.Flags().BoolVar(&argJSON, "json", false, "Print one JSON object per package")
}

type listEntry struct {
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	File        string    `json:"file"`
	Size        int64     `json:"size"`
	ContentSize uint64    `json:"content_size"`
	Modified    time.Time `json:"modified"`
}

func listCmd(cmd *cobra.Command, args []string) error {
	if err := shared.InitConfig(); err != nil {
		return shared.Fail(err)
	}
	ic := shared.CurrentConfig.Indexes
	scanner := catalog.NewScanner()
	scanner.Workers = ic.Workers
	scanner.ArchiveTimeout = ic.ArchiveTimeout
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	descs, err := scanner.Scan(ctx, ic.Root)
	if err != nil {
		return err
	}
	return list(cmd.OutOrStdout(), descs, argType, argJSON)
}

func list(w io.Writer, descs []*catalog.Descriptor, typeName string, asJSON bool) error {
	if typeName != "" {
		tp, err := catalog.ParseDownloadType(typeName)
		if err != nil {
			return err
		}
		var filtered []*catalog.Descriptor
		for _, d := range descs {
			if d.Type == tp {
				filtered = append(filtered, d)
			}
		}
		descs = filtered
	}
	if asJSON {
		enc := json.NewEncoder(w)
		for _, d := range descs {
			if err := enc.Encode(listEntry{
				Type:        d.Type.String(),
				Name:        d.Name,
				File:        d.FileName(),
				Size:        d.FileSize,
				ContentSize: d.ContentSize,
				Modified:    d.ModTime.UTC(),
			}); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tSIZE\tCONTENT\tFILE")
	for _, d := range descs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", d.Type, d.Name, d.FileSize, d.ContentSize, d.FileName())
	}
	return tw.Flush()
}
