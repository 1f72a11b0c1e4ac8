package basket

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &CreateBasketMsg{}, migration.NoModification)
	migration.MustRegister(1, &AddModuleMsg{}, migration.NoModification)
	migration.MustRegister(1, &RemoveModuleMsg{}, migration.NoModification)
	migration.MustRegister(1, &TransferMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateConfigurationMsg{}, migration.NoModification)
}

var _ weave.Msg = (*CreateBasketMsg)(nil)

// Validate runs the stateless part of the creation checks. The check order
// is part of the factory contract and the first failing check wins, so
// validation returns early instead of collecting field errors. Checks that
// require database access (the module whitelist) and the remaining ordered
// checks run in the handler.
func (m *CreateBasketMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if len(m.Components) == 0 {
		return errors.Wrap(errors.ErrEmpty, "must have at least one component")
	}
	seen := make(map[string]struct{}, len(m.Components))
	for _, c := range m.Components {
		if _, ok := seen[c.String()]; ok {
			return errors.Wrap(errors.ErrDuplicate, "duplicate component")
		}
		seen[c.String()] = struct{}{}
	}
	if len(m.Components) != len(m.Units) {
		return errors.Wrap(errors.ErrMsg, "length mismatch")
	}
	if len(m.Modules) == 0 {
		return errors.Wrap(errors.ErrEmpty, "must have at least one module")
	}
	return nil
}

func (CreateBasketMsg) Path() string {
	return "basket/create"
}

var _ weave.Msg = (*AddModuleMsg)(nil)

func (m *AddModuleMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if len(m.BasketID) == 0 {
		errs = errors.AppendField(errs, "BasketID", errors.ErrEmpty)
	}
	if m.Module == "" {
		errs = errors.AppendField(errs, "Module", errors.ErrEmpty)
	}
	return errs
}

func (AddModuleMsg) Path() string {
	return "basket/add_module"
}

var _ weave.Msg = (*RemoveModuleMsg)(nil)

func (m *RemoveModuleMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if len(m.BasketID) == 0 {
		errs = errors.AppendField(errs, "BasketID", errors.ErrEmpty)
	}
	if m.Module == "" {
		errs = errors.AppendField(errs, "Module", errors.ErrEmpty)
	}
	return errs
}

func (RemoveModuleMsg) Path() string {
	return "basket/remove_module"
}

var _ weave.Msg = (*TransferMsg)(nil)

func (m *TransferMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if len(m.BasketID) == 0 {
		errs = errors.AppendField(errs, "BasketID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Source", m.Source.Validate())
	errs = errors.AppendField(errs, "Destination", m.Destination.Validate())
	if m.Amount.IsNil() || !m.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount",
			errors.Wrap(errors.ErrAmount, "must be positive"))
	}
	return errs
}

func (TransferMsg) Path() string {
	return "basket/transfer"
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
	if len(c.ProtocolFeeRecipient) != 0 {
		errs = errors.AppendField(errs, "ProtocolFeeRecipient", c.ProtocolFeeRecipient.Validate())
	}
	return errs
}

func (*UpdateConfigurationMsg) Path() string {
	return "basket/update_configuration"
}
