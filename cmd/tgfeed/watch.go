// Copyright 2025 walteh LLC
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

package main

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/log"
	"github.com/walteh/tgfeed/pkg/sink"
	"github.com/walteh/tgfeed/pkg/stream"
)

func newWatchCmd(o *rootOpts) *cobra.Command {
	var (
		output string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream new products until interrupted",
		Long: `Watch polls the listing and prints every new product as it arrives.
It will:
1. Fetch each feed's listing immediately, then every feed interval
   (--source text or --source image polls the EMWIN feeds)
2. Download each file not delivered before, in listing order
3. Optionally save each product into --output
4. Keep going through failures until interrupted or --limit is reached`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			console := log.FromContext(ctx)
			user := log.NewUserLogger(ctx)

			cfg, err := o.loadConfig(ctx)
			if err != nil {
				return err
			}

			sources, err := newSources(cfg)
			if err != nil {
				return err
			}

			var out *sink.Directory
			if output != "" {
				if out, err = sink.New(output); err != nil {
					return errors.Errorf("preparing output: %w", err)
				}
				console.Infof("saving products into %s", out.Dir())
			}

			s, err := stream.NewMulti(ctx, sources, cfg.StreamOptions())
			if err != nil {
				return errors.Errorf("creating stream: %w", err)
			}
			defer s.Close()

			console.StartWatch(ctx, log.WatchOperation{
				Source: cfg.String(),
				Format: cfg.Source.Format,
				Stream: s.ID(),
				Output: output,
			})
			defer console.EndWatch(ctx)
			if limit == 0 {
				console.Info("running until interrupted")
			}

			delivered := 0
			for ev := range s.Events(ctx) {
				console.LogEvent(ctx, ev)

				p, ok := ev.Product()
				if !ok {
					continue
				}
				delivered++

				if out != nil {
					info, err := out.Save(ctx, p)
					switch {
					case err != nil:
						user.LogSave(log.Save{Result: log.SaveError, Path: p.Filename(), Error: err})
					case info.Status == sink.StatusUnchanged:
						user.LogSave(log.Save{Result: log.SaveUnchanged, Path: info.Path, Size: int(info.Size), Checksum: info.Checksum})
					default:
						user.LogSave(log.Save{Result: log.SaveWritten, Path: info.Path, Size: int(info.Size), Checksum: info.Checksum})
					}
				}

				if limit > 0 && delivered >= limit {
					console.Successf("stopping after %d products", delivered)
					break
				}
			}

			if ctx.Err() != nil {
				console.Warning("interrupted")
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "directory to save products into")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many delivered products (0 runs forever)")

	return cmd
}
