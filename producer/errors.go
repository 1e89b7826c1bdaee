package producer

import "errors"

var (
	ErrUnknownProducer = errors.New("no producer with this name")
	ErrMissingArgument = errors.New("missing producer argument")
	ErrNotConnected    = errors.New("producer is not connected")
)
