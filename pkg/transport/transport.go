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

package transport

import (
	"context"
)

// 🔌 Transport is the boundary to the remote file-drop service.
//
// Implementations must honor ctx cancellation and report failures as *Error
// so the retry controller can tell transient from permanent ones.
type Transport interface {
	// 📂 FetchListing returns the raw bytes of the current directory listing.
	// It may return ErrNotModified when the listing is unchanged since the
	// previous successful call.
	FetchListing(ctx context.Context) ([]byte, error)

	// 📄 FetchFile returns the raw bytes of a single published file.
	FetchFile(ctx context.Context, name string) ([]byte, error)
}

// 🔁 Conditional is implemented by transports that remember validators
// (ETag, Last-Modified) from the last listing and send conditional requests.
type Conditional interface {
	// Forget drops the remembered validators so the next FetchListing is
	// unconditional.
	Forget()
}

// Forget clears the conditional state of t, if it keeps any.
func Forget(t Transport) {
	if c, ok := t.(Conditional); ok {
		c.Forget()
	}
}

// Op names the transport operation that failed.
type Op string

const (
	OpListing Op = "listing"
	OpFile    Op = "file"
)
