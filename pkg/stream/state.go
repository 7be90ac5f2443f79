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

package stream

// State is a step of the driver's poll cycle.
type State int

const (
	StateIdle State = iota
	StateFetchingListing
	StateDiffing
	StateDownloading
	StateSleeping
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingListing:
		return "fetching-listing"
	case StateDiffing:
		return "diffing"
	case StateDownloading:
		return "downloading"
	case StateSleeping:
		return "sleeping"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
