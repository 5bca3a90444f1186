package server

import "errors"

var (
	ErrUnsupportedAdapter = errors.New("unsupported adapter")
	ErrMissingLocation    = errors.New("location query parameter is required")
)
