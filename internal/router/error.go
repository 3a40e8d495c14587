package router

import "errors"

var (
	ErrScreenNotInGraph = errors.New("screen not available for this session")
	ErrNothingToPop     = errors.New("already at the first screen")
)
