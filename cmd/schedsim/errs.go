package main

import "errors"

var (
	// ErrInvalidArgument indicates an unknown algorithm selector or a
	// missing input file.
	ErrInvalidArgument = errors.New("schedsim: invalid argument")

	// ErrResourceUnavailable indicates a required resource outside the
	// simulation's own state couldn't be acquired, e.g. the log directory
	// couldn't be created for scheduler.log/memory.log/scheduler.perf.
	ErrResourceUnavailable = errors.New("schedsim: resource unavailable")
)
