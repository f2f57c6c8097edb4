package ir

import "errors"

// ErrProducerTaken is returned by CreateOp when an output tensor already
// has a producer; a Graph is single-static-assignment by construction.
var ErrProducerTaken = errors.New("ir: output tensor already has a producer")
