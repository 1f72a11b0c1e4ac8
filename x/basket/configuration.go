package basket

import (
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &Configuration{}, migration.NoModification)
}

func (c *Configuration) Validate() error {
	var errs error
	// Owner field is optional.
	if len(c.Owner) != 0 {
		errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
	}
	for i, name := range c.EnabledModules {
		if name == "" {
			errs = errors.Append(errs,
				errors.Field("EnabledModules", errors.ErrModel, "empty module name at %d", i))
		}
	}
	// ProtocolFeeRecipient field is optional. Modules that split fees with
	// the protocol fail at accrual time when it is unset.
	if len(c.ProtocolFeeRecipient) != 0 {
		errs = errors.AppendField(errs, "ProtocolFeeRecipient", c.ProtocolFeeRecipient.Validate())
	}
	return errs
}
