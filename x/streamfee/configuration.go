package streamfee

import (
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"

	"github.com/basketprotocol/basket/fixmath"
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
	if c.ProtocolFeePercentage.IsNil() || c.ProtocolFeePercentage.IsNegative() {
		errs = errors.AppendField(errs, "ProtocolFeePercentage",
			errors.Wrap(errors.ErrModel, "must not be negative"))
	} else if c.ProtocolFeePercentage.GTE(fixmath.One) {
		errs = errors.AppendField(errs, "ProtocolFeePercentage",
			errors.Wrap(errors.ErrModel, "must be less than 100%"))
	}
	return errs
}
