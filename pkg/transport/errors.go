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
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"gitlab.com/tozd/go/errors"
)

// ErrNotModified reports that the listing has not changed since it was last
// fetched. It is not a failure.
var ErrNotModified = errors.New("transport: listing not modified")

// 📊 Kind classifies a transport failure
type Kind int

const (
	KindPermanent Kind = iota // retrying within this cycle will not help
	KindTransient             // expected to resolve on retry
)

// String returns a string representation of Kind
func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// ❌ Error is a failure reported by a Transport.
type Error struct {
	Op         Op
	Name       string // file name for OpFile
	StatusCode int    // zero when no response was received
	Kind       Kind
	Err        error
}

func (e *Error) Error() string {
	target := string(e.Op)
	if e.Name != "" {
		target = fmt.Sprintf("%s %s", e.Op, e.Name)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: %s error: status %d: %v", target, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %s: %s error: %v", target, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Filename returns the file the error concerns, if any.
func (e *Error) Filename() string { return e.Name }

// 🏭 NewError builds an Error, deriving the kind from err.
func NewError(op Op, name string, err error) *Error {
	return &Error{Op: op, Name: name, Kind: ClassifyError(err), Err: err}
}

// 🏭 NewStatusError builds an Error for an unexpected HTTP-like status code.
func NewStatusError(op Op, name string, code int) *Error {
	return &Error{
		Op:         op,
		Name:       name,
		StatusCode: code,
		Kind:       ClassifyStatus(code),
		Err:        errors.Errorf("unexpected status %d %s", code, http.StatusText(code)),
	}
}

// 🔍 ClassifyStatus maps a response status code to a Kind. Timeouts, rate
// limiting and 5xx responses are transient; every other failure is permanent.
func ClassifyStatus(code int) Kind {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusTooEarly,
		code == http.StatusTooManyRequests,
		code >= 500 && code <= 599:
		return KindTransient
	default:
		return KindPermanent
	}
}

// 🔍 ClassifyError maps a low-level error to a Kind.
func ClassifyError(err error) Kind {
	if err == nil {
		return KindPermanent
	}

	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return KindTransient
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTransient
	}

	var operr *net.OpError
	if errors.As(err, &operr) {
		return KindTransient
	}

	var dnserr *net.DNSError
	if errors.As(err, &dnserr) && (dnserr.IsTemporary || dnserr.IsTimeout) {
		return KindTransient
	}

	return KindPermanent
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return err != nil && ClassifyError(err) == KindTransient
}
