package service

import "errors"

var (
	// ErrBackpressure is returned when the contest queue is full or closed.
	ErrBackpressure = errors.New("contest queue is full")
	// ErrNotStarted is returned when contests are submitted before Start.
	ErrNotStarted = errors.New("service not started")
)
