package streamfee

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
	initializeCost = 0
	accrueFeeCost  = 0
	updateCost     = 0

	tagBasketID       = "basket-id"
	tagAction         = "action"
	tagManagerAmount  = "manager-amount"
	tagProtocolAmount = "protocol-amount"
	tagFee            = "fee"
	tagRecipient      = "recipient"
)

// BasketController is the basket functionality required by the fee engine.
// It is implemented by the basket extension controller. The engine never
// touches basket storage directly.
type BasketController interface {
	Manager(db weave.KVStore, basketID []byte) (weave.Address, error)
	IsPending(db weave.KVStore, basketID []byte, module string) (bool, error)
	IsInitialized(db weave.KVStore, basketID []byte, module string) (bool, error)
	InitializeModule(db weave.KVStore, basketID []byte, module string) error
	TotalSupply(db weave.KVStore, basketID []byte) (math.Int, error)
	Mint(db weave.KVStore, basketID []byte, recipient weave.Address, amount math.Int) error
	PositionMultiplier(db weave.KVStore, basketID []byte) (math.Int, error)
	SetPositionMultiplier(db weave.KVStore, basketID []byte, multiplier math.Int) error
	ProtocolFeeRecipient(db weave.KVStore) (weave.Address, error)
}

// RegisterQuery registers the fee state bucket for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewFeeStateBucket().Register("feestates", qr)
}

// RegisterRoutes registers handlers for streaming fee message processing.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, ctrl BasketController) {
	r = migration.SchemaMigratingRegistry("streamfee", r)
	states := NewFeeStateBucket()
	guard := &scopeLock{}

	r.Handle(&InitializeMsg{}, &initializeHandler{
		auth:   auth,
		states: states,
		ctrl:   ctrl,
		guard:  guard,
	})
	r.Handle(&AccrueFeeMsg{}, &accrueFeeHandler{
		auth:   auth,
		states: states,
		ctrl:   ctrl,
		guard:  guard,
	})
	r.Handle(&UpdateStreamingFeeMsg{}, &updateStreamingFeeHandler{
		auth:   auth,
		states: states,
		ctrl:   ctrl,
		guard:  guard,
	})
	r.Handle(&UpdateFeeRecipientMsg{}, &updateFeeRecipientHandler{
		auth:   auth,
		states: states,
		ctrl:   ctrl,
		guard:  guard,
	})
	r.Handle(&UpdateConfigurationMsg{}, NewConfigHandler(auth))
}

// Remover implements the basket module removal hook. Detaching deletes the
// fee state outright, forfeiting any fees accrued since the last settlement.
type Remover struct {
	states orm.ModelBucket
}

// NewRemover returns the removal hook for wiring into the basket routes.
func NewRemover() *Remover {
	return &Remover{states: NewFeeStateBucket()}
}

func (r *Remover) RemoveModule(db weave.KVStore, basketID []byte) error {
	switch err := r.states.Delete(db, basketID); {
	case err == nil, errors.ErrNotFound.Is(err):
		return nil
	default:
		return errors.Wrap(err, "cannot delete fee state")
	}
}

type initializeHandler struct {
	auth   x.Authenticator
	states orm.ModelBucket
	ctrl   BasketController
	guard  *scopeLock
}

func (h *initializeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: initializeCost}, nil
}

func (h *initializeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.guard.acquire(); err != nil {
		return nil, err
	}
	defer h.guard.release()

	blockTime, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "block time")
	}

	// The settlement clock always starts at the current block time,
	// regardless of what the caller may wish for.
	state := FeeState{
		Metadata:                  &weave.Metadata{Schema: 1},
		FeeRecipient:              msg.FeeRecipient,
		MaxStreamingFeePercentage: msg.MaxStreamingFeePercentage,
		StreamingFeePercentage:    msg.StreamingFeePercentage,
		LastStreamingFeeTimestamp: weave.AsUnixTime(blockTime),
	}
	if _, err := h.states.Put(db, msg.BasketID, &state); err != nil {
		return nil, errors.Wrap(err, "cannot store fee state")
	}
	if err := h.ctrl.InitializeModule(db, msg.BasketID, ModuleName); err != nil {
		return nil, errors.Wrap(err, "cannot initialize module")
	}
	return &weave.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte(tagBasketID), Value: msg.BasketID},
			{Key: []byte(tagAction), Value: []byte("initialize")},
		},
	}, nil
}

func (h *initializeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*InitializeMsg, error) {
	var msg InitializeMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	pending, err := h.ctrl.IsPending(db, msg.BasketID, ModuleName)
	if err != nil {
		return nil, err
	}
	if !pending {
		return nil, errors.Wrap(errors.ErrState, "module is not pending on the basket")
	}
	manager, err := h.ctrl.Manager(db, msg.BasketID)
	if err != nil {
		return nil, err
	}
	if !h.auth.HasAddress(ctx, manager) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "manager signature required")
	}
	switch err := h.states.Has(db, msg.BasketID); {
	case err == nil:
		return nil, errors.Wrap(errors.ErrDuplicate, "fee state already exists")
	case errors.ErrNotFound.Is(err):
		// No previous state, initialization can proceed.
	default:
		return nil, errors.Wrap(err, "cannot check fee state")
	}
	return &msg, nil
}

type accrueFeeHandler struct {
	auth   x.Authenticator
	states orm.ModelBucket
	ctrl   BasketController
	guard  *scopeLock
}

func (h *accrueFeeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: accrueFeeCost}, nil
}

func (h *accrueFeeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, state, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.guard.acquire(); err != nil {
		return nil, err
	}
	defer h.guard.release()

	blockTime, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "block time")
	}
	now := weave.AsUnixTime(blockTime)

	managerAmount, protocolAmount, err := settle(db, h.ctrl, msg.BasketID, state, now)
	if err != nil {
		return nil, err
	}
	// The settlement clock advances even when nothing was minted.
	state.LastStreamingFeeTimestamp = now
	if _, err := h.states.Put(db, msg.BasketID, state); err != nil {
		return nil, errors.Wrap(err, "cannot store fee state")
	}
	return &weave.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte(tagBasketID), Value: msg.BasketID},
			{Key: []byte(tagManagerAmount), Value: []byte(managerAmount.String())},
			{Key: []byte(tagProtocolAmount), Value: []byte(protocolAmount.String())},
			{Key: []byte(tagAction), Value: []byte("accrue_fee")},
		},
	}, nil
}

// validate loads the message and the fee state. Anyone can trigger an
// accrual, so there is no authorization check.
func (h *accrueFeeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*AccrueFeeMsg, *FeeState, error) {
	var msg AccrueFeeMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	initialized, err := h.ctrl.IsInitialized(db, msg.BasketID, ModuleName)
	if err != nil {
		return nil, nil, err
	}
	if !initialized {
		return nil, nil, errors.Wrap(errors.ErrState, "module is not initialized on the basket")
	}
	var state FeeState
	if err := h.states.One(db, msg.BasketID, &state); err != nil {
		return nil, nil, errors.Wrap(err, "cannot get fee state")
	}
	return &msg, &state, nil
}

type updateStreamingFeeHandler struct {
	auth   x.Authenticator
	states orm.ModelBucket
	ctrl   BasketController
	guard  *scopeLock
}

func (h *updateStreamingFeeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: updateCost}, nil
}

func (h *updateStreamingFeeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, state, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.guard.acquire(); err != nil {
		return nil, err
	}
	defer h.guard.release()

	blockTime, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "block time")
	}
	now := weave.AsUnixTime(blockTime)

	// Everything accrued so far is owed at the old rate. Settle before
	// the new rate takes effect.
	if _, _, err := settle(db, h.ctrl, msg.BasketID, state, now); err != nil {
		return nil, err
	}
	state.StreamingFeePercentage = msg.NewFee
	state.LastStreamingFeeTimestamp = now
	if _, err := h.states.Put(db, msg.BasketID, state); err != nil {
		return nil, errors.Wrap(err, "cannot store fee state")
	}
	return &weave.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte(tagBasketID), Value: msg.BasketID},
			{Key: []byte(tagFee), Value: []byte(msg.NewFee.String())},
			{Key: []byte(tagAction), Value: []byte("update_streaming_fee")},
		},
	}, nil
}

func (h *updateStreamingFeeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*UpdateStreamingFeeMsg, *FeeState, error) {
	var msg UpdateStreamingFeeMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	initialized, err := h.ctrl.IsInitialized(db, msg.BasketID, ModuleName)
	if err != nil {
		return nil, nil, err
	}
	if !initialized {
		return nil, nil, errors.Wrap(errors.ErrState, "module is not initialized on the basket")
	}
	manager, err := h.ctrl.Manager(db, msg.BasketID)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, manager) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "manager signature required")
	}
	var state FeeState
	if err := h.states.One(db, msg.BasketID, &state); err != nil {
		return nil, nil, errors.Wrap(err, "cannot get fee state")
	}
	// Unlike initialization, which allows the fee to match the maximum,
	// updates require the new fee to be strictly below it.
	if msg.NewFee.GTE(state.MaxStreamingFeePercentage) {
		return nil, nil, errors.Wrap(errors.ErrAmount, "fee must be less than maximum")
	}
	return &msg, &state, nil
}

type updateFeeRecipientHandler struct {
	auth   x.Authenticator
	states orm.ModelBucket
	ctrl   BasketController
	guard  *scopeLock
}

func (h *updateFeeRecipientHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: updateCost}, nil
}

func (h *updateFeeRecipientHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, state, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.guard.acquire(); err != nil {
		return nil, err
	}
	defer h.guard.release()

	// A pure recipient change. Fees accrued so far stream to the new
	// recipient on the next settlement.
	state.FeeRecipient = msg.NewRecipient
	if _, err := h.states.Put(db, msg.BasketID, state); err != nil {
		return nil, errors.Wrap(err, "cannot store fee state")
	}
	return &weave.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte(tagBasketID), Value: msg.BasketID},
			{Key: []byte(tagRecipient), Value: msg.NewRecipient},
			{Key: []byte(tagAction), Value: []byte("update_fee_recipient")},
		},
	}, nil
}

func (h *updateFeeRecipientHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*UpdateFeeRecipientMsg, *FeeState, error) {
	var msg UpdateFeeRecipientMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	initialized, err := h.ctrl.IsInitialized(db, msg.BasketID, ModuleName)
	if err != nil {
		return nil, nil, err
	}
	if !initialized {
		return nil, nil, errors.Wrap(errors.ErrState, "module is not initialized on the basket")
	}
	manager, err := h.ctrl.Manager(db, msg.BasketID)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, manager) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "manager signature required")
	}
	var state FeeState
	if err := h.states.One(db, msg.BasketID, &state); err != nil {
		return nil, nil, errors.Wrap(err, "cannot get fee state")
	}
	return &msg, &state, nil
}

// settle mints the fees accrued since the last settlement and rescales the
// basket position multiplier. The minted quantity is chosen so that after
// minting, the fee recipients own exactly the inflation share of the new
// supply. The caller is responsible for advancing the state timestamp.
func settle(db weave.KVStore, ctrl BasketController, basketID []byte, state *FeeState, now weave.UnixTime) (managerAmount, protocolAmount math.Int, err error) {
	zero := math.ZeroInt()

	inflation, err := PendingFeePercentage(state, now)
	if err != nil {
		return zero, zero, err
	}
	if inflation.IsZero() {
		return zero, zero, nil
	}
	if inflation.GTE(fixmath.One) {
		return zero, zero, errors.Wrap(errors.ErrOverflow, "accrued inflation reaches 100%")
	}
	remainder := fixmath.One.Sub(inflation)

	supply, err := ctrl.TotalSupply(db, basketID)
	if err != nil {
		return zero, zero, err
	}
	feeQuantity, err := fixmath.MulDiv(inflation, supply, remainder)
	if err != nil {
		return zero, zero, err
	}

	var conf Configuration
	if err := gconf.Load(db, "streamfee", &conf); err != nil {
		return zero, zero, errors.Wrap(err, "load configuration")
	}
	protocolAmount, err = fixmath.PreciseMul(feeQuantity, conf.ProtocolFeePercentage)
	if err != nil {
		return zero, zero, err
	}
	managerAmount = feeQuantity.Sub(protocolAmount)

	if err := ctrl.Mint(db, basketID, state.FeeRecipient, managerAmount); err != nil {
		return zero, zero, errors.Wrap(err, "cannot mint manager fee")
	}
	if protocolAmount.IsPositive() {
		treasury, err := ctrl.ProtocolFeeRecipient(db)
		if err != nil {
			return zero, zero, err
		}
		if err := ctrl.Mint(db, basketID, treasury, protocolAmount); err != nil {
			return zero, zero, errors.Wrap(err, "cannot mint protocol fee")
		}
	}

	current, err := ctrl.PositionMultiplier(db, basketID)
	if err != nil {
		return zero, zero, err
	}
	multiplier, err := fixmath.NonNegative(current)
	if err != nil {
		return zero, zero, errors.Wrap(err, "position multiplier")
	}
	rescaled, err := fixmath.MulDiv(multiplier, remainder, fixmath.One)
	if err != nil {
		return zero, zero, err
	}
	if err := ctrl.SetPositionMultiplier(db, basketID, rescaled); err != nil {
		return zero, zero, errors.Wrap(err, "cannot rescale position multiplier")
	}
	return managerAmount, protocolAmount, nil
}

// NewConfigHandler returns the owner-authorized configuration update handler.
func NewConfigHandler(auth x.Authenticator) weave.Handler {
	var conf Configuration
	return gconf.NewUpdateConfigurationHandler("streamfee", &conf, auth, migration.CurrentAdmin)
}
