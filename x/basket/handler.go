package basket

import (
	"cosmossdk.io/math"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
	"github.com/tendermint/tendermint/libs/common"

	"github.com/basketprotocol/basket/fixmath"
)

const (
	createBasketCost = 0
	moduleUpdateCost = 0
	transferCost     = 0

	tagBasketID = "basket-id"
	tagAction   = "action"
	tagManager  = "manager"
	tagName     = "name"
	tagSymbol   = "symbol"
)

// RegisterQuery registers basket buckets for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewBasketBucket().Register("baskets", qr)
	NewHoldingBucket().Register("holdings", qr)
}

// RegisterRoutes registers handlers for basket message processing. The
// removers map binds module names to their removal hooks, so that detaching
// a module tears down the state it keeps for the basket.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, removers map[string]ModuleRemover) {
	r = migration.SchemaMigratingRegistry("basket", r)
	baskets := NewBasketBucket()

	r.Handle(&CreateBasketMsg{}, &createBasketHandler{
		auth:    auth,
		baskets: baskets,
	})
	r.Handle(&AddModuleMsg{}, &addModuleHandler{
		auth:    auth,
		baskets: baskets,
	})
	r.Handle(&RemoveModuleMsg{}, &removeModuleHandler{
		auth:     auth,
		baskets:  baskets,
		removers: removers,
	})
	r.Handle(&TransferMsg{}, &transferHandler{
		auth: auth,
		ctrl: NewController(),
	})
	r.Handle(&UpdateConfigurationMsg{}, NewConfigHandler(auth))
}

type createBasketHandler struct {
	auth    x.Authenticator
	baskets orm.ModelBucket
}

func (h *createBasketHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: createBasketCost}, nil
}

func (h *createBasketHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	basket := Basket{
		Metadata:           &weave.Metadata{Schema: 1},
		Manager:            msg.Manager,
		Name:               msg.Name,
		Symbol:             msg.Symbol,
		Components:         make([]*Component, len(msg.Components)),
		Modules:            make([]*ModuleInfo, len(msg.Modules)),
		TotalSupply:        math.ZeroInt(),
		PositionMultiplier: fixmath.One,
	}
	for i, addr := range msg.Components {
		basket.Components[i] = &Component{
			Address: addr,
			Unit:    msg.Units[i],
		}
	}
	for i, name := range msg.Modules {
		basket.Modules[i] = &ModuleInfo{
			Name:  name,
			State: ModuleState_PENDING,
		}
	}

	key, err := h.baskets.Put(db, nil, &basket)
	if err != nil {
		return nil, errors.Wrap(err, "cannot store basket")
	}
	return &weave.DeliverResult{
		Data: key,
		Tags: []common.KVPair{
			{Key: []byte(tagBasketID), Value: key},
			{Key: []byte(tagManager), Value: msg.Manager},
			{Key: []byte(tagName), Value: []byte(msg.Name)},
			{Key: []byte(tagSymbol), Value: []byte(msg.Symbol)},
			{Key: []byte(tagAction), Value: []byte("create")},
		},
	}, nil
}

// validate runs the stateful part of the factory checks. Together with the
// message Validate method this preserves the documented check order: the
// whitelist lookup happens after the module list length check and before the
// manager and component value checks.
func (h *createBasketHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*CreateBasketMsg, error) {
	var msg CreateBasketMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}

	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	for _, name := range msg.Modules {
		if !contains(conf.EnabledModules, name) {
			return nil, errors.Wrapf(ErrModuleNotEnabled, "%q", name)
		}
	}
	if len(msg.Manager) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "manager must not be empty")
	}
	if err := msg.Manager.Validate(); err != nil {
		return nil, errors.Wrap(err, "manager")
	}
	for _, c := range msg.Components {
		if len(c) == 0 {
			return nil, errors.Wrap(errors.ErrEmpty, "component must not be null")
		}
		if err := c.Validate(); err != nil {
			return nil, errors.Wrap(err, "component")
		}
	}
	for _, u := range msg.Units {
		if u.IsNil() || !u.IsPositive() {
			return nil, errors.Wrap(errors.ErrAmount, "units must be greater than zero")
		}
	}

	if !h.auth.HasAddress(ctx, msg.Manager) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "manager signature required")
	}
	return &msg, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

type addModuleHandler struct {
	auth    x.Authenticator
	baskets orm.ModelBucket
}

func (h *addModuleHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: moduleUpdateCost}, nil
}

func (h *addModuleHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, basket, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	basket.Modules = append(basket.Modules, &ModuleInfo{
		Name:  msg.Module,
		State: ModuleState_PENDING,
	})
	if _, err := h.baskets.Put(db, msg.BasketID, basket); err != nil {
		return nil, errors.Wrap(err, "cannot update basket")
	}
	return &weave.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte(tagBasketID), Value: msg.BasketID},
			{Key: []byte(tagAction), Value: []byte("add_module")},
		},
	}, nil
}

func (h *addModuleHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*AddModuleMsg, *Basket, error) {
	var msg AddModuleMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var basket Basket
	if err := h.baskets.One(db, msg.BasketID, &basket); err != nil {
		return nil, nil, errors.Wrap(err, "cannot get basket")
	}
	if !h.auth.HasAddress(ctx, basket.Manager) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "manager signature required")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, nil, err
	}
	if !contains(conf.EnabledModules, msg.Module) {
		return nil, nil, errors.Wrapf(ErrModuleNotEnabled, "%q", msg.Module)
	}
	if basket.moduleInfo(msg.Module) != nil {
		return nil, nil, errors.Wrapf(errors.ErrDuplicate, "module %q already attached", msg.Module)
	}
	return &msg, &basket, nil
}

type removeModuleHandler struct {
	auth     x.Authenticator
	baskets  orm.ModelBucket
	removers map[string]ModuleRemover
}

func (h *removeModuleHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: moduleUpdateCost}, nil
}

func (h *removeModuleHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, basket, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	// Tear down whatever state the module keeps for this basket before
	// dropping the attachment entry.
	if remover, ok := h.removers[msg.Module]; ok {
		if err := remover.RemoveModule(db, msg.BasketID); err != nil {
			return nil, errors.Wrapf(err, "cannot remove module %q", msg.Module)
		}
	}

	mods := basket.Modules[:0]
	for _, m := range basket.Modules {
		if m.Name != msg.Module {
			mods = append(mods, m)
		}
	}
	basket.Modules = mods
	if _, err := h.baskets.Put(db, msg.BasketID, basket); err != nil {
		return nil, errors.Wrap(err, "cannot update basket")
	}
	return &weave.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte(tagBasketID), Value: msg.BasketID},
			{Key: []byte(tagAction), Value: []byte("remove_module")},
		},
	}, nil
}

func (h *removeModuleHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*RemoveModuleMsg, *Basket, error) {
	var msg RemoveModuleMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var basket Basket
	if err := h.baskets.One(db, msg.BasketID, &basket); err != nil {
		return nil, nil, errors.Wrap(err, "cannot get basket")
	}
	if !h.auth.HasAddress(ctx, basket.Manager) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "manager signature required")
	}
	if basket.moduleInfo(msg.Module) == nil {
		return nil, nil, errors.Wrapf(ErrNoSuchModule, "%q", msg.Module)
	}
	return &msg, &basket, nil
}

type transferHandler struct {
	auth x.Authenticator
	ctrl *Controller
}

func (h *transferHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: transferCost}, nil
}

func (h *transferHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.ctrl.Move(db, msg.BasketID, msg.Source, msg.Destination, msg.Amount); err != nil {
		return nil, err
	}
	return &weave.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte(tagBasketID), Value: msg.BasketID},
			{Key: []byte(tagAction), Value: []byte("transfer")},
		},
	}, nil
}

func (h *transferHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*TransferMsg, error) {
	var msg TransferMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source signature required")
	}
	return &msg, nil
}

// NewConfigHandler returns the owner-authorized configuration update handler.
func NewConfigHandler(auth x.Authenticator) weave.Handler {
	var conf Configuration
	return gconf.NewUpdateConfigurationHandler("basket", &conf, auth, migration.CurrentAdmin)
}
