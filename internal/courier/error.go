package courier

import "errors"

var (
	ErrOrderNotFound    = errors.New("order not on the board")
	ErrActionInProgress = errors.New("order action already in progress")
)
