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

package config

import (
	"slices"
	"sort"
	"time"

	"gitlab.com/tozd/go/errors"
)

// EMWINBaseURL is the operational EMWIN path on the NWS telecommunications
// gateway.
const EMWINBaseURL = "https://tgftp.nws.noaa.gov/SL.us008001/CU.EMWIN/DF.xt/DC.gsatR/OPS/"

// 📰 Feed is one listing polled by a source. A feed with Cycles > 0 retires
// after that many polls; it exists to pick up the backlog at startup.
type Feed struct {
	Name         string
	ListingPath  string
	PollInterval time.Duration // zero uses the config poll interval
	Cycles       int           // zero polls forever
}

// 📦 Preset bundles a known set of feeds under one name.
type Preset struct {
	Name        string
	Description string
	URL         string
	Feeds       []Feed
}

var presets = map[string]Preset{
	"text": {
		Name:        "text",
		Description: "EMWIN text products, ~90s latency, backlog of 3-4 hours",
		URL:         EMWINBaseURL,
		Feeds: []Feed{
			{Name: "txtmin02", ListingPath: "txtmin02.zip", PollInterval: 47 * time.Second},
			{Name: "txtmin06", ListingPath: "txtmin06.zip", PollInterval: 6 * time.Minute, Cycles: 3},
			{Name: "txtmin20", ListingPath: "txtmin20.zip", PollInterval: 20 * time.Minute, Cycles: 3},
			// regenerated hourly
			{Name: "txthrs03", ListingPath: "txthrs03.zip", PollInterval: time.Hour},
		},
	},
	"image": {
		Name:        "image",
		Description: "EMWIN image products, ~6m latency",
		URL:         EMWINBaseURL,
		Feeds: []Feed{
			{Name: "imgmin15", ListingPath: "imgmin15.zip", PollInterval: 352 * time.Second},
			{Name: "imghrs03", ListingPath: "imghrs03.zip", PollInterval: time.Hour},
		},
	},
}

// Presets returns every known preset, sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		names := make([]string, 0, len(presets))
		for n := range presets {
			names = append(names, n)
		}
		sort.Strings(names)
		return Preset{}, errors.Errorf("unknown source preset %q (known: %v)", name, names)
	}
	return p, nil
}

// 🎛️ ApplyPreset points the config at the named preset: its feeds, archive
// listings in zip format, unwrapped and uppercased products. A URL already
// set is kept.
func (cfg *Config) ApplyPreset(name string) error {
	p, err := LookupPreset(name)
	if err != nil {
		return err
	}

	cfg.Source.Preset = p.Name
	if cfg.Source.URL == "" {
		cfg.Source.URL = p.URL
	}
	cfg.Source.ListingPath = ""
	cfg.Source.Archive = true
	cfg.Source.Format = "zip"
	cfg.Feeds = slices.Clone(p.Feeds)
	cfg.UnwrapArchives = true
	cfg.UppercaseNames = true

	return nil
}
