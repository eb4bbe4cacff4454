package repl

import "errors"

// ErrHandler wraps errors returned by a handler under PropagateErrors.
var ErrHandler = errors.New("repl: handler failed")
