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
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tgfeed/pkg/config"
	"github.com/walteh/tgfeed/pkg/log"
	"github.com/walteh/tgfeed/pkg/stream"
	"github.com/walteh/tgfeed/pkg/transport"
	"github.com/walteh/tgfeed/pkg/transport/archive"
	"github.com/walteh/tgfeed/pkg/transport/httptransport"
)

// rootOpts contains shared options used by all commands
type rootOpts struct {
	configFile string
	debug      bool
	url        string
	format     string
	preset     string
}

func newRootCmd() *cobra.Command {
	o := &rootOpts{}

	cmd := &cobra.Command{
		Use:   "tgfeed",
		Short: "Stream new products from an anonymous file drop",
		Long: `tgfeed polls a remote directory listing, such as the NWS
telecommunications gateway EMWIN feed, and delivers every newly published
file exactly once, in the order it was listed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if o.debug {
				level = zerolog.DebugLevel
			}
			logger := log.New(cmd.OutOrStdout(), level)
			cmd.SetContext(log.NewContext(cmd.Context(), logger))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&o.configFile, "config", "c", "", "config file path (.yaml, .json, .hcl or .toml)")
	cmd.PersistentFlags().BoolVarP(&o.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&o.url, "url", "", "source URL, overrides the config file")
	cmd.PersistentFlags().StringVar(&o.format, "format", "", "listing format, overrides the config file")
	cmd.PersistentFlags().StringVar(&o.preset, "source", "", "named source preset (text or image), overrides the config file feeds")

	cmd.AddCommand(
		newWatchCmd(o),
		newListCmd(o),
		newVersionCmd(),
	)

	return cmd
}

// 🔧 loadConfig reads the config file, if any, and applies flag overrides
func (o *rootOpts) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg := config.Default()
	if o.configFile != "" {
		loaded, err := config.LoadConfig(ctx, o.configFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if o.preset != "" {
		if err := cfg.ApplyPreset(o.preset); err != nil {
			return nil, errors.Errorf("--source: %w", err)
		}
	}
	if o.url != "" {
		cfg.Source.URL = o.url
	}
	if o.format != "" {
		cfg.Source.Format = o.format
	}

	if cfg.Source.URL == "" {
		return nil, errors.New("no source URL: pass --url or --source, or set source.url in the config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 📡 newSources builds one stream source per feed. Every feed shares one
// request throttle since they all hit the same host.
func newSources(cfg *config.Config) ([]stream.Source, error) {
	limiter := httptransport.NewLimiter(cfg.Source.RequestsPerSecond)

	feeds := cfg.FeedList()
	sources := make([]stream.Source, 0, len(feeds))
	for _, f := range feeds {
		opts := cfg.TransportOptions()
		opts.ListingPath = f.ListingPath
		opts.Limiter = limiter

		ht, err := httptransport.New(opts)
		if err != nil {
			return nil, errors.Errorf("creating transport for %q: %w", f.ListingPath, err)
		}

		var t transport.Transport = ht
		if cfg.Source.Archive {
			t = archive.New(ht, cfg.MaxBodySize)
		}

		sources = append(sources, stream.Source{
			Name:         f.Name,
			Transport:    t,
			PollInterval: f.PollInterval,
			Cycles:       f.Cycles,
		})
	}
	return sources, nil
}
