// Package srverr holds sentinel errors shared by the server's handlers and
// middleware.
package srverr

import "errors"

// ErrTypeAssertMismatch signals that a value stashed on the echo context was
// not the type the reader expected.
var ErrTypeAssertMismatch = errors.New("type assert mismatch")
