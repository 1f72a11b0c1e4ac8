package streamfee

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"

	"github.com/basketprotocol/basket/fixmath"
)

// feeTestController is an in memory stand-in for the basket controller.
type feeTestController struct {
	manager    weave.Address
	treasury   weave.Address
	modules    map[string]string
	supply     math.Int
	multiplier math.Int
	balances   map[string]math.Int
}

func newFeeTestController(manager, treasury weave.Address) *feeTestController {
	return &feeTestController{
		manager:    manager,
		treasury:   treasury,
		modules:    map[string]string{ModuleName: "pending"},
		supply:     math.ZeroInt(),
		multiplier: fixmath.One,
		balances:   make(map[string]math.Int),
	}
}

func (c *feeTestController) Manager(db weave.KVStore, basketID []byte) (weave.Address, error) {
	return c.manager, nil
}

func (c *feeTestController) IsPending(db weave.KVStore, basketID []byte, module string) (bool, error) {
	return c.modules[module] == "pending", nil
}

func (c *feeTestController) IsInitialized(db weave.KVStore, basketID []byte, module string) (bool, error) {
	return c.modules[module] == "initialized", nil
}

func (c *feeTestController) InitializeModule(db weave.KVStore, basketID []byte, module string) error {
	if c.modules[module] != "pending" {
		return errors.Wrap(errors.ErrState, "module is not pending")
	}
	c.modules[module] = "initialized"
	return nil
}

func (c *feeTestController) TotalSupply(db weave.KVStore, basketID []byte) (math.Int, error) {
	return c.supply, nil
}

func (c *feeTestController) Mint(db weave.KVStore, basketID []byte, recipient weave.Address, amount math.Int) error {
	if amount.IsNegative() {
		return errors.Wrap(errors.ErrAmount, "negative amount")
	}
	if amount.IsZero() {
		return nil
	}
	c.supply = c.supply.Add(amount)
	bal, ok := c.balances[recipient.String()]
	if !ok {
		bal = math.ZeroInt()
	}
	c.balances[recipient.String()] = bal.Add(amount)
	return nil
}

func (c *feeTestController) PositionMultiplier(db weave.KVStore, basketID []byte) (math.Int, error) {
	return c.multiplier, nil
}

func (c *feeTestController) SetPositionMultiplier(db weave.KVStore, basketID []byte, multiplier math.Int) error {
	c.multiplier = multiplier
	return nil
}

func (c *feeTestController) ProtocolFeeRecipient(db weave.KVStore) (weave.Address, error) {
	if len(c.treasury) == 0 {
		return nil, errors.Wrap(errors.ErrState, "protocol fee recipient not configured")
	}
	return c.treasury, nil
}

func (c *feeTestController) balance(addr weave.Address) math.Int {
	bal, ok := c.balances[addr.String()]
	if !ok {
		return math.ZeroInt()
	}
	return bal
}

func newStreamfeeTestDB(t testing.TB, protocolPct math.Int) weave.CacheableKVStore {
	t.Helper()
	db := store.MemStore()
	migration.MustInitPkg(db, "streamfee")
	err := gconf.Save(db, "streamfee", &Configuration{
		Metadata:              &weave.Metadata{Schema: 1},
		ProtocolFeePercentage: protocolPct,
	})
	assert.Nil(t, err)
	return db
}

func TestInitializeHandler(t *testing.T) {
	manager := weavetest.NewCondition()
	stranger := weavetest.NewCondition()
	recipient := weavetest.NewCondition().Address()
	treasury := weavetest.NewCondition().Address()
	basketID := []byte("basket001")

	goodMsg := func() *InitializeMsg {
		return &InitializeMsg{
			Metadata:                  &weave.Metadata{Schema: 1},
			BasketID:                  basketID,
			FeeRecipient:              recipient,
			MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
			StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
		}
	}

	cases := map[string]struct {
		conditions []weave.Condition
		moduleAt   string
		preState   bool
		msg        weave.Msg
		wantErr    *errors.Error
	}{
		"manager can initialize a pending module": {
			conditions: []weave.Condition{manager},
			moduleAt:   "pending",
			msg:        goodMsg(),
		},
		"module must be pending": {
			conditions: []weave.Condition{manager},
			moduleAt:   "initialized",
			msg:        goodMsg(),
			wantErr:    errors.ErrState,
		},
		"only the manager can initialize": {
			conditions: []weave.Condition{stranger},
			moduleAt:   "pending",
			msg:        goodMsg(),
			wantErr:    errors.ErrUnauthorized,
		},
		"fee state must not already exist": {
			conditions: []weave.Condition{manager},
			moduleAt:   "pending",
			preState:   true,
			msg:        goodMsg(),
			wantErr:    errors.ErrDuplicate,
		},
		"fee above the maximum is rejected": {
			conditions: []weave.Condition{manager},
			moduleAt:   "pending",
			msg: &InitializeMsg{
				Metadata:                  &weave.Metadata{Schema: 1},
				BasketID:                  basketID,
				FeeRecipient:              recipient,
				MaxStreamingFeePercentage: fixmath.MustInt("10000000000000000"),
				StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
			},
			wantErr: errors.ErrAmount,
		},
		"missing fee recipient is rejected": {
			conditions: []weave.Condition{manager},
			moduleAt:   "pending",
			msg: &InitializeMsg{
				Metadata:                  &weave.Metadata{Schema: 1},
				BasketID:                  basketID,
				MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
				StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
			},
			wantErr: errors.ErrEmpty,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := newStreamfeeTestDB(t, math.ZeroInt())
			ctrl := newFeeTestController(manager.Address(), treasury)
			ctrl.modules[ModuleName] = tc.moduleAt

			if tc.preState {
				_, err := NewFeeStateBucket().Put(db, basketID, &FeeState{
					Metadata:                  &weave.Metadata{Schema: 1},
					FeeRecipient:              recipient,
					MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
					StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
					LastStreamingFeeTimestamp: 500,
				})
				assert.Nil(t, err)
			}

			rt := app.NewRouter()
			auth := &weavetest.CtxAuth{Key: "auth"}
			RegisterRoutes(rt, auth, ctrl)

			blockTime := time.Unix(7654321, 0)
			ctx := weave.WithBlockTime(context.Background(), blockTime)
			ctx = auth.SetConditions(ctx, tc.conditions...)
			tx := &weavetest.Tx{Msg: tc.msg}

			cache := db.CacheWrap()
			if _, err := rt.Check(ctx, cache, tx); !tc.wantErr.Is(err) {
				t.Fatalf("unexpected check error: %+v", err)
			}
			cache.Discard()

			if _, err := rt.Deliver(ctx, db, tx); !tc.wantErr.Is(err) {
				t.Fatalf("unexpected deliver error: %+v", err)
			}
			if tc.wantErr != nil {
				return
			}

			var state FeeState
			assert.Nil(t, NewFeeStateBucket().One(db, basketID, &state))
			assert.Equal(t, weave.AsUnixTime(blockTime), state.LastStreamingFeeTimestamp)
			assert.Equal(t, recipient, state.FeeRecipient)
			assert.Equal(t, "initialized", ctrl.modules[ModuleName])
		})
	}
}

func TestAccrueFee(t *testing.T) {
	manager := weavetest.NewCondition()
	anyone := weavetest.NewCondition()
	recipient := weavetest.NewCondition().Address()
	treasury := weavetest.NewCondition().Address()
	basketID := []byte("basket001")

	const startTime = 1000000
	// Half of a Julian year at a 2% annual fee inflates the basket by 1%.
	const halfYear = fixmath.SecondsPerYear / 2

	setup := func(t *testing.T, protocolPct math.Int) (weave.CacheableKVStore, *feeTestController, weave.Handler) {
		t.Helper()
		db := newStreamfeeTestDB(t, protocolPct)
		ctrl := newFeeTestController(manager.Address(), treasury)
		ctrl.modules[ModuleName] = "initialized"
		ctrl.supply = fixmath.MustInt("100000000000000000000")
		_, err := NewFeeStateBucket().Put(db, basketID, &FeeState{
			Metadata:                  &weave.Metadata{Schema: 1},
			FeeRecipient:              recipient,
			MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
			StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
			LastStreamingFeeTimestamp: startTime,
		})
		assert.Nil(t, err)

		rt := app.NewRouter()
		auth := &weavetest.CtxAuth{Key: "auth"}
		RegisterRoutes(rt, auth, ctrl)
		return db, ctrl, rt
	}

	t.Run("fee is split between recipient and treasury", func(t *testing.T) {
		db, ctrl, rt := setup(t, fixmath.MustInt("100000000000000000"))

		auth := &weavetest.CtxAuth{Key: "auth"}
		ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime+halfYear, 0))
		ctx = auth.SetConditions(ctx, anyone)
		tx := &weavetest.Tx{Msg: &AccrueFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
		}}

		res, err := rt.Deliver(ctx, db, tx)
		assert.Nil(t, err)

		// A 1% inflation on 100 units mints 100/99 units in total,
		// with a tenth of it going to the protocol treasury.
		assert.Equal(t, fixmath.MustInt("909090909090909091"), ctrl.balance(recipient))
		assert.Equal(t, fixmath.MustInt("101010101010101010"), ctrl.balance(treasury))
		assert.Equal(t, fixmath.MustInt("101010101010101010101"), ctrl.supply)
		assert.Equal(t, fixmath.MustInt("990000000000000000"), ctrl.multiplier)

		var state FeeState
		assert.Nil(t, NewFeeStateBucket().One(db, basketID, &state))
		assert.Equal(t, weave.UnixTime(startTime+halfYear), state.LastStreamingFeeTimestamp)

		var gotManager, gotProtocol string
		for _, tag := range res.Tags {
			switch string(tag.Key) {
			case tagManagerAmount:
				gotManager = string(tag.Value)
			case tagProtocolAmount:
				gotProtocol = string(tag.Value)
			}
		}
		assert.Equal(t, "909090909090909091", gotManager)
		assert.Equal(t, "101010101010101010", gotProtocol)
	})

	t.Run("whole fee goes to recipient without a protocol cut", func(t *testing.T) {
		db, ctrl, rt := setup(t, math.ZeroInt())

		auth := &weavetest.CtxAuth{Key: "auth"}
		ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime+halfYear, 0))
		ctx = auth.SetConditions(ctx, anyone)
		tx := &weavetest.Tx{Msg: &AccrueFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
		}}

		_, err := rt.Deliver(ctx, db, tx)
		assert.Nil(t, err)
		assert.Equal(t, fixmath.MustInt("1010101010101010101"), ctrl.balance(recipient))
		assert.Equal(t, math.ZeroInt(), ctrl.balance(treasury))
	})

	t.Run("zero elapsed time mints nothing", func(t *testing.T) {
		db, ctrl, rt := setup(t, math.ZeroInt())

		auth := &weavetest.CtxAuth{Key: "auth"}
		ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime, 0))
		ctx = auth.SetConditions(ctx, anyone)
		tx := &weavetest.Tx{Msg: &AccrueFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
		}}

		_, err := rt.Deliver(ctx, db, tx)
		assert.Nil(t, err)
		assert.Equal(t, math.ZeroInt(), ctrl.balance(recipient))
		assert.Equal(t, fixmath.MustInt("100000000000000000000"), ctrl.supply)
		assert.Equal(t, fixmath.One, ctrl.multiplier)
	})

	t.Run("zero fee still advances the settlement clock", func(t *testing.T) {
		db, ctrl, rt := setup(t, math.ZeroInt())
		_, err := NewFeeStateBucket().Put(db, basketID, &FeeState{
			Metadata:                  &weave.Metadata{Schema: 1},
			FeeRecipient:              recipient,
			MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
			StreamingFeePercentage:    math.ZeroInt(),
			LastStreamingFeeTimestamp: startTime,
		})
		assert.Nil(t, err)

		auth := &weavetest.CtxAuth{Key: "auth"}
		ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime+halfYear, 0))
		ctx = auth.SetConditions(ctx, anyone)
		tx := &weavetest.Tx{Msg: &AccrueFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
		}}

		_, err = rt.Deliver(ctx, db, tx)
		assert.Nil(t, err)
		assert.Equal(t, math.ZeroInt(), ctrl.balance(recipient))
		assert.Equal(t, fixmath.One, ctrl.multiplier)

		var state FeeState
		assert.Nil(t, NewFeeStateBucket().One(db, basketID, &state))
		assert.Equal(t, weave.UnixTime(startTime+halfYear), state.LastStreamingFeeTimestamp)
	})

	t.Run("corrupted negative multiplier aborts the accrual", func(t *testing.T) {
		db, ctrl, rt := setup(t, math.ZeroInt())
		ctrl.multiplier = math.NewInt(-1)

		auth := &weavetest.CtxAuth{Key: "auth"}
		ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime+halfYear, 0))
		ctx = auth.SetConditions(ctx, anyone)
		tx := &weavetest.Tx{Msg: &AccrueFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
		}}

		_, err := rt.Deliver(ctx, db, tx)
		assert.IsErr(t, errors.ErrOverflow, err)
	})

	t.Run("accrual requires an initialized module", func(t *testing.T) {
		db, ctrl, rt := setup(t, math.ZeroInt())
		ctrl.modules[ModuleName] = "pending"

		auth := &weavetest.CtxAuth{Key: "auth"}
		ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime+halfYear, 0))
		ctx = auth.SetConditions(ctx, anyone)
		tx := &weavetest.Tx{Msg: &AccrueFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
		}}

		_, err := rt.Deliver(ctx, db, tx)
		assert.IsErr(t, errors.ErrState, err)
	})
}

func TestUpdateStreamingFee(t *testing.T) {
	manager := weavetest.NewCondition()
	stranger := weavetest.NewCondition()
	recipient := weavetest.NewCondition().Address()
	treasury := weavetest.NewCondition().Address()
	basketID := []byte("basket001")

	const startTime = 1000000
	const halfYear = fixmath.SecondsPerYear / 2

	setup := func(t *testing.T) (weave.CacheableKVStore, *feeTestController, weave.Handler) {
		t.Helper()
		db := newStreamfeeTestDB(t, math.ZeroInt())
		ctrl := newFeeTestController(manager.Address(), treasury)
		ctrl.modules[ModuleName] = "initialized"
		ctrl.supply = fixmath.MustInt("100000000000000000000")
		_, err := NewFeeStateBucket().Put(db, basketID, &FeeState{
			Metadata:                  &weave.Metadata{Schema: 1},
			FeeRecipient:              recipient,
			MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
			StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
			LastStreamingFeeTimestamp: startTime,
		})
		assert.Nil(t, err)

		rt := app.NewRouter()
		auth := &weavetest.CtxAuth{Key: "auth"}
		RegisterRoutes(rt, auth, ctrl)
		return db, ctrl, rt
	}

	t.Run("pending fees settle at the old rate before the change", func(t *testing.T) {
		db, ctrl, rt := setup(t)

		auth := &weavetest.CtxAuth{Key: "auth"}
		ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime+halfYear, 0))
		ctx = auth.SetConditions(ctx, manager)
		tx := &weavetest.Tx{Msg: &UpdateStreamingFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
			NewFee:   fixmath.MustInt("40000000000000000"),
		}}

		_, err := rt.Deliver(ctx, db, tx)
		assert.Nil(t, err)

		// Half a year at the old 2% rate was owed at the moment of
		// the change.
		assert.Equal(t, fixmath.MustInt("1010101010101010101"), ctrl.balance(recipient))
		assert.Equal(t, fixmath.MustInt("990000000000000000"), ctrl.multiplier)

		var state FeeState
		assert.Nil(t, NewFeeStateBucket().One(db, basketID, &state))
		assert.Equal(t, fixmath.MustInt("40000000000000000"), state.StreamingFeePercentage)
		assert.Equal(t, weave.UnixTime(startTime+halfYear), state.LastStreamingFeeTimestamp)
	})

	t.Run("new fee equal to the maximum is rejected", func(t *testing.T) {
		db, _, rt := setup(t)

		auth := &weavetest.CtxAuth{Key: "auth"}
		ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime+halfYear, 0))
		ctx = auth.SetConditions(ctx, manager)
		tx := &weavetest.Tx{Msg: &UpdateStreamingFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
			NewFee:   fixmath.MustInt("50000000000000000"),
		}}

		_, err := rt.Deliver(ctx, db, tx)
		assert.IsErr(t, errors.ErrAmount, err)
	})

	t.Run("only the manager can change the fee", func(t *testing.T) {
		db, _, rt := setup(t)

		auth := &weavetest.CtxAuth{Key: "auth"}
		ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime+halfYear, 0))
		ctx = auth.SetConditions(ctx, stranger)
		tx := &weavetest.Tx{Msg: &UpdateStreamingFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
			NewFee:   fixmath.MustInt("10000000000000000"),
		}}

		_, err := rt.Deliver(ctx, db, tx)
		assert.IsErr(t, errors.ErrUnauthorized, err)
	})
}

func TestUpdateFeeRecipient(t *testing.T) {
	manager := weavetest.NewCondition()
	stranger := weavetest.NewCondition()
	recipient := weavetest.NewCondition().Address()
	newRecipient := weavetest.NewCondition().Address()
	treasury := weavetest.NewCondition().Address()
	basketID := []byte("basket001")

	const startTime = 1000000

	db := newStreamfeeTestDB(t, math.ZeroInt())
	ctrl := newFeeTestController(manager.Address(), treasury)
	ctrl.modules[ModuleName] = "initialized"
	ctrl.supply = fixmath.MustInt("100000000000000000000")
	_, err := NewFeeStateBucket().Put(db, basketID, &FeeState{
		Metadata:                  &weave.Metadata{Schema: 1},
		FeeRecipient:              recipient,
		MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
		StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
		LastStreamingFeeTimestamp: startTime,
	})
	assert.Nil(t, err)

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	RegisterRoutes(rt, auth, ctrl)

	ctx := weave.WithBlockTime(context.Background(), time.Unix(startTime+12345, 0))

	tx := &weavetest.Tx{Msg: &UpdateFeeRecipientMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		BasketID:     basketID,
		NewRecipient: newRecipient,
	}}
	if _, err := rt.Deliver(auth.SetConditions(ctx, stranger), db, tx); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %+v", err)
	}

	_, err = rt.Deliver(auth.SetConditions(ctx, manager), db, tx)
	assert.Nil(t, err)

	var state FeeState
	assert.Nil(t, NewFeeStateBucket().One(db, basketID, &state))
	assert.Equal(t, newRecipient, state.FeeRecipient)
	// Changing the recipient does not settle, the clock is untouched.
	assert.Equal(t, weave.UnixTime(startTime), state.LastStreamingFeeTimestamp)
	assert.Equal(t, math.ZeroInt(), ctrl.balance(recipient))
}

func TestUpdateFeeRecipientHeldLock(t *testing.T) {
	manager := weavetest.NewCondition()
	recipient := weavetest.NewCondition().Address()
	newRecipient := weavetest.NewCondition().Address()
	treasury := weavetest.NewCondition().Address()
	basketID := []byte("basket001")

	db := newStreamfeeTestDB(t, math.ZeroInt())
	ctrl := newFeeTestController(manager.Address(), treasury)
	ctrl.modules[ModuleName] = "initialized"
	_, err := NewFeeStateBucket().Put(db, basketID, &FeeState{
		Metadata:                  &weave.Metadata{Schema: 1},
		FeeRecipient:              recipient,
		MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
		StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
		LastStreamingFeeTimestamp: 1000,
	})
	assert.Nil(t, err)

	auth := &weavetest.CtxAuth{Key: "auth"}
	guard := &scopeLock{}
	h := &updateFeeRecipientHandler{
		auth:   auth,
		states: NewFeeStateBucket(),
		ctrl:   ctrl,
		guard:  guard,
	}
	ctx := weave.WithBlockTime(context.Background(), time.Unix(2000, 0))
	ctx = auth.SetConditions(ctx, manager)
	tx := &weavetest.Tx{Msg: &UpdateFeeRecipientMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		BasketID:     basketID,
		NewRecipient: newRecipient,
	}}

	// While the engine scope is held, the recipient change must be
	// rejected like any other mutation.
	assert.Nil(t, guard.acquire())
	_, err = h.Deliver(ctx, db, tx)
	assert.IsErr(t, ErrReentrancy, err)

	guard.release()
	_, err = h.Deliver(ctx, db, tx)
	assert.Nil(t, err)

	var state FeeState
	assert.Nil(t, NewFeeStateBucket().One(db, basketID, &state))
	assert.Equal(t, newRecipient, state.FeeRecipient)
}

func TestRemoverForfeitsFeeState(t *testing.T) {
	recipient := weavetest.NewCondition().Address()
	basketID := []byte("basket001")

	db := store.MemStore()
	migration.MustInitPkg(db, "streamfee")

	_, err := NewFeeStateBucket().Put(db, basketID, &FeeState{
		Metadata:                  &weave.Metadata{Schema: 1},
		FeeRecipient:              recipient,
		MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
		StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
		LastStreamingFeeTimestamp: 1000,
	})
	assert.Nil(t, err)

	r := NewRemover()
	assert.Nil(t, r.RemoveModule(db, basketID))

	var state FeeState
	if err := NewFeeStateBucket().One(db, basketID, &state); !errors.ErrNotFound.Is(err) {
		t.Fatalf("fee state must be gone, got %+v", err)
	}

	// Removing a basket with no fee state must not fail.
	assert.Nil(t, r.RemoveModule(db, []byte("no-such-basket")))
}

func TestPendingFeePercentage(t *testing.T) {
	state := &FeeState{
		StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
		LastStreamingFeeTimestamp: 1000000,
	}

	pct, err := PendingFeePercentage(state, weave.UnixTime(1000000+fixmath.SecondsPerYear/2))
	assert.Nil(t, err)
	assert.Equal(t, fixmath.MustInt("10000000000000000"), pct)

	pct, err = PendingFeePercentage(state, weave.UnixTime(1000000))
	assert.Nil(t, err)
	assert.Equal(t, math.ZeroInt(), pct)

	if _, err := PendingFeePercentage(state, weave.UnixTime(999999)); !errors.ErrState.Is(err) {
		t.Fatalf("want state error for time travel, got %+v", err)
	}
}

func TestScopeLock(t *testing.T) {
	var g scopeLock
	assert.Nil(t, g.acquire())
	assert.IsErr(t, ErrReentrancy, g.acquire())
	g.release()
	assert.Nil(t, g.acquire())
}
