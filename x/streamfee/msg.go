package streamfee

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"

	"github.com/basketprotocol/basket/fixmath"
)

func init() {
	migration.MustRegister(1, &InitializeMsg{}, migration.NoModification)
	migration.MustRegister(1, &AccrueFeeMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateStreamingFeeMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateFeeRecipientMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateConfigurationMsg{}, migration.NoModification)
}

var _ weave.Msg = (*InitializeMsg)(nil)

func (m *InitializeMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if len(m.BasketID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "basket id")
	}
	if len(m.FeeRecipient) == 0 {
		return errors.Wrap(errors.ErrEmpty, "fee recipient must not be empty")
	}
	if err := m.FeeRecipient.Validate(); err != nil {
		return errors.Wrap(err, "fee recipient")
	}
	if m.MaxStreamingFeePercentage.IsNil() || m.MaxStreamingFeePercentage.IsNegative() {
		return errors.Wrap(errors.ErrAmount, "max streaming fee must not be negative")
	}
	if m.MaxStreamingFeePercentage.GTE(fixmath.One) {
		return errors.Wrap(errors.ErrAmount, "max streaming fee must be less than 100%")
	}
	if m.StreamingFeePercentage.IsNil() || m.StreamingFeePercentage.IsNegative() {
		return errors.Wrap(errors.ErrAmount, "streaming fee must not be negative")
	}
	if m.StreamingFeePercentage.GT(m.MaxStreamingFeePercentage) {
		return errors.Wrap(errors.ErrAmount, "streaming fee must not exceed the maximum")
	}
	return nil
}

func (InitializeMsg) Path() string {
	return "streamfee/initialize"
}

var _ weave.Msg = (*AccrueFeeMsg)(nil)

func (m *AccrueFeeMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if len(m.BasketID) == 0 {
		errs = errors.AppendField(errs, "BasketID", errors.ErrEmpty)
	}
	return errs
}

func (AccrueFeeMsg) Path() string {
	return "streamfee/accrue_fee"
}

var _ weave.Msg = (*UpdateStreamingFeeMsg)(nil)

func (m *UpdateStreamingFeeMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if len(m.BasketID) == 0 {
		errs = errors.AppendField(errs, "BasketID", errors.ErrEmpty)
	}
	if m.NewFee.IsNil() || m.NewFee.IsNegative() {
		errs = errors.AppendField(errs, "NewFee",
			errors.Wrap(errors.ErrAmount, "must not be negative"))
	}
	return errs
}

func (UpdateStreamingFeeMsg) Path() string {
	return "streamfee/update_streaming_fee"
}

var _ weave.Msg = (*UpdateFeeRecipientMsg)(nil)

func (m *UpdateFeeRecipientMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if len(m.BasketID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "basket id")
	}
	if len(m.NewRecipient) == 0 {
		return errors.Wrap(errors.ErrEmpty, "fee recipient must not be empty")
	}
	return errors.Wrap(m.NewRecipient.Validate(), "new recipient")
}

func (UpdateFeeRecipientMsg) Path() string {
	return "streamfee/update_fee_recipient"
}

var _ weave.Msg = (*UpdateConfigurationMsg)(nil)

// Validate will skip any zero fields and validate the set ones.
func (m *UpdateConfigurationMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if m.Patch == nil {
		return errors.Append(errs, errors.Field("Patch", errors.ErrEmpty, "required"))
	}
	c := m.Patch
	if len(c.Owner) != 0 {
		errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
	}
	if !c.ProtocolFeePercentage.IsNil() && c.ProtocolFeePercentage.GTE(fixmath.One) {
		errs = errors.AppendField(errs, "ProtocolFeePercentage",
			errors.Wrap(errors.ErrAmount, "must be less than 100%"))
	}
	return errs
}

func (*UpdateConfigurationMsg) Path() string {
	return "streamfee/update_configuration"
}
