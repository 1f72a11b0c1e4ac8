package basket

import (
	"cosmossdk.io/math"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Basket{}, migration.NoModification)
	migration.MustRegister(1, &Holding{}, migration.NoModification)
}

var _ orm.CloneableData = (*Basket)(nil)

func (b *Basket) Validate() error {
	if err := b.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := b.Manager.Validate(); err != nil {
		return errors.Wrap(err, "manager")
	}
	if len(b.Components) == 0 {
		return errors.Wrap(errors.ErrModel, "no components")
	}
	for i, c := range b.Components {
		if err := c.Address.Validate(); err != nil {
			return errors.Wrapf(err, "component %d address", i)
		}
		if c.Unit.IsNil() || !c.Unit.IsPositive() {
			return errors.Wrapf(errors.ErrModel, "component %d unit must be positive", i)
		}
	}
	for i, mod := range b.Modules {
		if mod.Name == "" {
			return errors.Wrapf(errors.ErrModel, "module %d name missing", i)
		}
		if mod.State != ModuleState_PENDING && mod.State != ModuleState_INITIALIZED {
			return errors.Wrapf(errors.ErrModel, "module %d state invalid", i)
		}
	}
	if b.TotalSupply.IsNil() || b.TotalSupply.IsNegative() {
		return errors.Wrap(errors.ErrModel, "total supply must not be negative")
	}
	if b.PositionMultiplier.IsNil() || !b.PositionMultiplier.IsPositive() {
		return errors.Wrap(errors.ErrModel, "position multiplier must be positive")
	}
	return nil
}

func (b *Basket) Copy() orm.CloneableData {
	cpy := &Basket{
		Metadata:           b.Metadata.Copy(),
		Manager:            b.Manager.Clone(),
		Name:               b.Name,
		Symbol:             b.Symbol,
		Components:         make([]*Component, len(b.Components)),
		Modules:            make([]*ModuleInfo, len(b.Modules)),
		TotalSupply:        cloneInt(b.TotalSupply),
		PositionMultiplier: cloneInt(b.PositionMultiplier),
	}
	for i := range b.Components {
		cpy.Components[i] = &Component{
			Address: b.Components[i].Address.Clone(),
			Unit:    cloneInt(b.Components[i].Unit),
		}
	}
	for i := range b.Modules {
		cpy.Modules[i] = &ModuleInfo{
			Name:  b.Modules[i].Name,
			State: b.Modules[i].State,
		}
	}
	return cpy
}

// moduleInfo returns the attachment entry for a module name, or nil when the
// module is not attached.
func (b *Basket) moduleInfo(name string) *ModuleInfo {
	for _, m := range b.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func cloneInt(i math.Int) math.Int {
	if i.IsNil() {
		return i
	}
	return math.NewIntFromBigInt(i.BigInt())
}

var _ orm.CloneableData = (*Holding)(nil)

func (h *Holding) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", h.Metadata.Validate())
	if len(h.BasketID) == 0 {
		errs = errors.AppendField(errs, "BasketID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Address", h.Address.Validate())
	if h.Amount.IsNil() || h.Amount.IsNegative() {
		errs = errors.AppendField(errs, "Amount",
			errors.Wrap(errors.ErrModel, "must not be negative"))
	}
	return errs
}

func (h *Holding) Copy() orm.CloneableData {
	return &Holding{
		Metadata: h.Metadata.Copy(),
		BasketID: append([]byte(nil), h.BasketID...),
		Address:  h.Address.Clone(),
		Amount:   cloneInt(h.Amount),
	}
}

var basketSeq = orm.NewSequence("basket", "id")

// NewBasketBucket returns a bucket for managing baskets, keyed by an
// auto-incremented sequence.
func NewBasketBucket() orm.ModelBucket {
	b := orm.NewModelBucket("basket", &Basket{},
		orm.WithIDSequence(basketSeq),
	)
	return migration.NewModelBucket("basket", b)
}

// NewHoldingBucket returns a bucket for basket token balances, keyed by
// basket ID and holder address.
func NewHoldingBucket() orm.ModelBucket {
	b := orm.NewModelBucket("holding", &Holding{})
	return migration.NewModelBucket("basket", b)
}

// holdingKey is the composite key of a holding entry.
func holdingKey(basketID []byte, addr weave.Address) []byte {
	key := make([]byte, 0, len(basketID)+len(addr))
	key = append(key, basketID...)
	return append(key, addr...)
}
