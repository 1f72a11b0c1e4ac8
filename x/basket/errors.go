package basket

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrModuleNotEnabled is returned when a basket references a module
	// that is not on the configuration whitelist.
	ErrModuleNotEnabled = errors.Register(1200, "module not enabled")

	// ErrNoSuchModule is returned when referencing a module that is not
	// attached to the basket.
	ErrNoSuchModule = errors.Register(1201, "module not found on basket")
)
