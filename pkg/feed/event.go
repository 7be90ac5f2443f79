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

package feed

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// 🎯 EventKind tags the variant held by an Event
type EventKind int

const (
	KindInvalid   EventKind = iota
	KindDelivered           // a new product was retrieved
	KindFailed              // an operation failed; the stream continues
)

// String returns a string representation of EventKind
func (k EventKind) String() string {
	switch k {
	case KindDelivered:
		return "delivered"
	case KindFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// 📨 Event is a single item produced by a stream: either Delivered(Product)
// or Failed(error).
type Event struct {
	kind    EventKind
	product Product
	err     error
}

// Delivered wraps a product in an event.
func Delivered(p Product) Event {
	return Event{kind: KindDelivered, product: p}
}

// Failed wraps an error in an event. A nil error is not a valid failure.
func Failed(err error) Event {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Event{kind: KindFailed, err: err}
}

// Kind reports which variant the event holds.
func (e Event) Kind() EventKind { return e.kind }

// Product returns the delivered product, if any.
func (e Event) Product() (Product, bool) {
	return e.product, e.kind == KindDelivered
}

// Err returns the failure, or nil for a delivery.
func (e Event) Err() error { return e.err }

// 🔍 Filename returns the filename an event refers to: the product name for
// deliveries, or the name carried by a failure that implements Filenamer.
func (e Event) Filename() string {
	switch e.kind {
	case KindDelivered:
		return e.product.Filename()
	case KindFailed:
		var f Filenamer
		if errors.As(e.err, &f) {
			return f.Filename()
		}
	}
	return ""
}

func (e Event) String() string {
	switch e.kind {
	case KindDelivered:
		return fmt.Sprintf("delivered %s (%d bytes)", e.product.Filename(), e.product.Size())
	case KindFailed:
		return fmt.Sprintf("failed: %v", e.err)
	default:
		return "invalid event"
	}
}

// Filenamer is implemented by errors that concern a single file.
type Filenamer interface {
	error
	Filename() string
}
