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
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/listing"
	"github.com/walteh/tgfeed/pkg/log"
	"github.com/walteh/tgfeed/pkg/retry"
)

func newListCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Fetch and print the current listing of every feed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			console := log.FromContext(ctx)

			cfg, err := o.loadConfig(ctx)
			if err != nil {
				return err
			}
			console.Header("listing " + cfg.String())

			sources, err := newSources(cfg)
			if err != nil {
				return err
			}

			rc, err := retry.New(cfg.Retry)
			if err != nil {
				return err
			}

			user := log.NewUserLogger(ctx)
			failed := 0
			for _, src := range sources {
				label := src.Name
				if label == "" {
					label = "listing"
				}

				raw, err := retry.Do(ctx, rc, retry.ListingClass(src.Name), src.Transport.FetchListing)
				if err == nil {
					var entries []listing.Entry
					if entries, err = listing.Parse(cfg.Source.Format, raw); err == nil {
						err = showListing(console, user, label, cfg.Filter().Apply(entries))
					}
				}
				if err != nil {
					if len(sources) == 1 {
						return errors.Errorf("%s: %w", label, err)
					}
					console.Errorf("%s: %v", label, err)
					failed++
				}
			}

			if failed > 0 {
				return errors.Errorf("%d of %d listings failed", failed, len(sources))
			}
			console.Success("listing complete")
			return nil
		},
	}
}

func showListing(console *log.Logger, user *log.UserLogger, label string, entries []listing.Entry) error {
	if len(entries) == 0 {
		console.Warningf("%s is empty", label)
		return nil
	}

	console.LogNewline()
	if err := user.ListingTable(entries); err != nil {
		return errors.Errorf("rendering listing: %w", err)
	}
	user.LogStateChange(fmt.Sprintf("%s: %d entries", label, len(entries)))
	return nil
}
