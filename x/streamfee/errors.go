package streamfee

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrReentrancy is returned when a mutating engine call is entered
	// again before the previous one finished.
	ErrReentrancy = errors.Register(1210, "re-entrant call")
)
