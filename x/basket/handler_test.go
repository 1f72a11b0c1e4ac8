package basket

import (
	"context"
	"strings"
	"testing"

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

func TestCreateBasketHandler(t *testing.T) {
	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	RegisterRoutes(rt, auth, nil)

	manager := weavetest.NewCondition()
	compA := weavetest.NewCondition().Address()
	compB := weavetest.NewCondition().Address()

	cases := map[string]struct {
		Ctx            func() context.Context
		Tx             weave.Tx
		WantCheckErr   *errors.Error
		WantDeliverErr *errors.Error
		WantErrMsg     string
	}{
		"happy path": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{manager})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Components: []weave.Address{compA, compB},
					Units:      []math.Int{fixmath.One, fixmath.One},
					Modules:    []string{"streamfee"},
					Manager:    manager.Address(),
					Name:       "DeFi Pulse Index",
					Symbol:     "DPI",
				},
			},
		},
		"at least one component required": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{manager})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata: &weave.Metadata{Schema: 1},
					Units:    []math.Int{fixmath.One},
					Modules:  []string{"streamfee"},
					Manager:  manager.Address(),
				},
			},
			WantCheckErr:   errors.ErrEmpty,
			WantDeliverErr: errors.ErrEmpty,
			WantErrMsg:     "must have at least one component",
		},
		"duplicate component": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{manager})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Components: []weave.Address{compA, compA},
					Units:      []math.Int{fixmath.One, fixmath.One},
					Modules:    []string{"streamfee"},
					Manager:    manager.Address(),
				},
			},
			WantCheckErr:   errors.ErrDuplicate,
			WantDeliverErr: errors.ErrDuplicate,
			WantErrMsg:     "duplicate component",
		},
		"components and units must align": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{manager})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Components: []weave.Address{compA, compB},
					Units:      []math.Int{fixmath.One},
					Modules:    []string{"streamfee"},
					Manager:    manager.Address(),
				},
			},
			WantCheckErr:   errors.ErrMsg,
			WantDeliverErr: errors.ErrMsg,
			WantErrMsg:     "length mismatch",
		},
		"at least one module required": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{manager})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Components: []weave.Address{compA},
					Units:      []math.Int{fixmath.One},
					Manager:    manager.Address(),
				},
			},
			WantCheckErr:   errors.ErrEmpty,
			WantDeliverErr: errors.ErrEmpty,
			WantErrMsg:     "must have at least one module",
		},
		"module must be whitelisted": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{manager})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Components: []weave.Address{compA},
					Units:      []math.Int{fixmath.One},
					Modules:    []string{"unknown"},
					Manager:    manager.Address(),
				},
			},
			WantCheckErr:   ErrModuleNotEnabled,
			WantDeliverErr: ErrModuleNotEnabled,
			WantErrMsg:     "module not enabled",
		},
		"manager must not be empty": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{manager})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Components: []weave.Address{compA},
					Units:      []math.Int{fixmath.One},
					Modules:    []string{"streamfee"},
				},
			},
			WantCheckErr:   errors.ErrEmpty,
			WantDeliverErr: errors.ErrEmpty,
			WantErrMsg:     "manager must not be empty",
		},
		"component must not be null": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{manager})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Components: []weave.Address{compA, nil},
					Units:      []math.Int{fixmath.One, fixmath.One},
					Modules:    []string{"streamfee"},
					Manager:    manager.Address(),
				},
			},
			WantCheckErr:   errors.ErrEmpty,
			WantDeliverErr: errors.ErrEmpty,
			WantErrMsg:     "component must not be null",
		},
		"units must be greater than zero": {
			Ctx: func() context.Context {
				return context.WithValue(context.Background(), "auth", []weave.Condition{manager})
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Components: []weave.Address{compA, compB},
					Units:      []math.Int{fixmath.One, math.ZeroInt()},
					Modules:    []string{"streamfee"},
					Manager:    manager.Address(),
				},
			},
			WantCheckErr:   errors.ErrAmount,
			WantDeliverErr: errors.ErrAmount,
			WantErrMsg:     "units must be greater than zero",
		},
		"manager signature required": {
			Ctx: func() context.Context {
				return context.Background()
			},
			Tx: &weavetest.Tx{
				Msg: &CreateBasketMsg{
					Metadata:   &weave.Metadata{Schema: 1},
					Components: []weave.Address{compA},
					Units:      []math.Int{fixmath.One},
					Modules:    []string{"streamfee"},
					Manager:    manager.Address(),
				},
			},
			WantCheckErr:   errors.ErrUnauthorized,
			WantDeliverErr: errors.ErrUnauthorized,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "basket")

			conf := Configuration{
				EnabledModules: []string{"streamfee"},
			}
			if err := gconf.Save(db, "basket", &conf); err != nil {
				t.Fatalf("cannot save gconf configuration: %s", err)
			}

			cache := db.CacheWrap()
			_, err := rt.Check(tc.Ctx(), cache, tc.Tx)
			assert.IsErr(t, tc.WantCheckErr, err)
			cache.Discard()

			res, err := rt.Deliver(tc.Ctx(), db, tc.Tx)
			assert.IsErr(t, tc.WantDeliverErr, err)
			if tc.WantErrMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tc.WantErrMsg) {
					t.Fatalf("want %q in error, got %v", tc.WantErrMsg, err)
				}
			}
			if tc.WantDeliverErr != nil {
				return
			}

			var b Basket
			if err := NewBasketBucket().One(db, res.Data, &b); err != nil {
				t.Fatalf("cannot load created basket: %s", err)
			}
			if !b.TotalSupply.IsZero() {
				t.Errorf("new basket must have zero supply, got %s", b.TotalSupply)
			}
			if !b.PositionMultiplier.Equal(fixmath.One) {
				t.Errorf("new basket multiplier must be one, got %s", b.PositionMultiplier)
			}
			for _, mod := range b.Modules {
				if mod.State != ModuleState_PENDING {
					t.Errorf("module %q must start pending, got %s", mod.Name, mod.State)
				}
			}
		})
	}
}

// recordingRemover counts the removal hook calls made by the basket handler.
type recordingRemover struct {
	removed [][]byte
	err     error
}

func (r *recordingRemover) RemoveModule(db weave.KVStore, basketID []byte) error {
	r.removed = append(r.removed, basketID)
	return r.err
}

func TestAddAndRemoveModule(t *testing.T) {
	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	remover := &recordingRemover{}
	RegisterRoutes(rt, auth, map[string]ModuleRemover{"streamfee": remover})

	manager := weavetest.NewCondition()
	stranger := weavetest.NewCondition()

	db := store.MemStore()
	migration.MustInitPkg(db, "basket")
	conf := Configuration{
		EnabledModules: []string{"streamfee", "issuance"},
	}
	if err := gconf.Save(db, "basket", &conf); err != nil {
		t.Fatalf("cannot save gconf configuration: %s", err)
	}

	basketID, err := NewBasketBucket().Put(db, nil, &Basket{
		Metadata: &weave.Metadata{Schema: 1},
		Manager:  manager.Address(),
		Components: []*Component{
			{Address: weavetest.NewCondition().Address(), Unit: fixmath.One},
		},
		Modules: []*ModuleInfo{
			{Name: "streamfee", State: ModuleState_INITIALIZED},
		},
		TotalSupply:        math.ZeroInt(),
		PositionMultiplier: fixmath.One,
	})
	assert.Nil(t, err)

	managerCtx := context.WithValue(context.Background(), "auth", []weave.Condition{manager})
	strangerCtx := context.WithValue(context.Background(), "auth", []weave.Condition{stranger})

	// Only the manager can attach a module.
	_, err = rt.Deliver(strangerCtx, db, &weavetest.Tx{Msg: &AddModuleMsg{
		Metadata: &weave.Metadata{Schema: 1},
		BasketID: basketID,
		Module:   "issuance",
	}})
	assert.IsErr(t, errors.ErrUnauthorized, err)

	// Attaching a module that is not whitelisted fails.
	_, err = rt.Deliver(managerCtx, db, &weavetest.Tx{Msg: &AddModuleMsg{
		Metadata: &weave.Metadata{Schema: 1},
		BasketID: basketID,
		Module:   "unknown",
	}})
	assert.IsErr(t, ErrModuleNotEnabled, err)

	// Attaching an already attached module fails.
	_, err = rt.Deliver(managerCtx, db, &weavetest.Tx{Msg: &AddModuleMsg{
		Metadata: &weave.Metadata{Schema: 1},
		BasketID: basketID,
		Module:   "streamfee",
	}})
	assert.IsErr(t, errors.ErrDuplicate, err)

	// A fresh module attaches in the pending state.
	_, err = rt.Deliver(managerCtx, db, &weavetest.Tx{Msg: &AddModuleMsg{
		Metadata: &weave.Metadata{Schema: 1},
		BasketID: basketID,
		Module:   "issuance",
	}})
	assert.Nil(t, err)
	var b Basket
	assert.Nil(t, NewBasketBucket().One(db, basketID, &b))
	if mod := b.moduleInfo("issuance"); mod == nil || mod.State != ModuleState_PENDING {
		t.Fatalf("issuance module must be attached pending, got %v", mod)
	}

	// Removing a module that is not attached fails.
	_, err = rt.Deliver(managerCtx, db, &weavetest.Tx{Msg: &RemoveModuleMsg{
		Metadata: &weave.Metadata{Schema: 1},
		BasketID: basketID,
		Module:   "unknown",
	}})
	assert.IsErr(t, ErrNoSuchModule, err)

	// Removal runs the module hook and drops the attachment.
	_, err = rt.Deliver(managerCtx, db, &weavetest.Tx{Msg: &RemoveModuleMsg{
		Metadata: &weave.Metadata{Schema: 1},
		BasketID: basketID,
		Module:   "streamfee",
	}})
	assert.Nil(t, err)
	if len(remover.removed) != 1 {
		t.Fatalf("removal hook must run once, got %d", len(remover.removed))
	}
	assert.Nil(t, NewBasketBucket().One(db, basketID, &b))
	if b.moduleInfo("streamfee") != nil {
		t.Fatal("streamfee module must be detached")
	}

	// A removed module can be attached again, starting from scratch.
	_, err = rt.Deliver(managerCtx, db, &weavetest.Tx{Msg: &AddModuleMsg{
		Metadata: &weave.Metadata{Schema: 1},
		BasketID: basketID,
		Module:   "streamfee",
	}})
	assert.Nil(t, err)
	assert.Nil(t, NewBasketBucket().One(db, basketID, &b))
	if mod := b.moduleInfo("streamfee"); mod == nil || mod.State != ModuleState_PENDING {
		t.Fatalf("reattached module must be pending, got %v", mod)
	}
}

func TestTransferHandler(t *testing.T) {
	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	RegisterRoutes(rt, auth, nil)

	manager := weavetest.NewCondition()
	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()

	db := store.MemStore()
	migration.MustInitPkg(db, "basket")
	if err := gconf.Save(db, "basket", &Configuration{}); err != nil {
		t.Fatalf("cannot save gconf configuration: %s", err)
	}

	ctrl := NewController()
	basketID, err := NewBasketBucket().Put(db, nil, &Basket{
		Metadata: &weave.Metadata{Schema: 1},
		Manager:  manager.Address(),
		Components: []*Component{
			{Address: weavetest.NewCondition().Address(), Unit: fixmath.One},
		},
		Modules:            []*ModuleInfo{{Name: "streamfee", State: ModuleState_PENDING}},
		TotalSupply:        math.ZeroInt(),
		PositionMultiplier: fixmath.One,
	})
	assert.Nil(t, err)
	assert.Nil(t, ctrl.Mint(db, basketID, alice.Address(), math.NewInt(100)))

	aliceCtx := context.WithValue(context.Background(), "auth", []weave.Condition{alice})
	bobCtx := context.WithValue(context.Background(), "auth", []weave.Condition{bob})

	// Only the source can move its tokens.
	_, err = rt.Deliver(bobCtx, db, &weavetest.Tx{Msg: &TransferMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		BasketID:    basketID,
		Source:      alice.Address(),
		Destination: bob.Address(),
		Amount:      math.NewInt(10),
	}})
	assert.IsErr(t, errors.ErrUnauthorized, err)

	// Balance is enforced.
	_, err = rt.Deliver(aliceCtx, db, &weavetest.Tx{Msg: &TransferMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		BasketID:    basketID,
		Source:      alice.Address(),
		Destination: bob.Address(),
		Amount:      math.NewInt(500),
	}})
	assert.IsErr(t, errors.ErrAmount, err)

	_, err = rt.Deliver(aliceCtx, db, &weavetest.Tx{Msg: &TransferMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		BasketID:    basketID,
		Source:      alice.Address(),
		Destination: bob.Address(),
		Amount:      math.NewInt(30),
	}})
	assert.Nil(t, err)

	aliceBalance, err := ctrl.Balance(db, basketID, alice.Address())
	assert.Nil(t, err)
	if !aliceBalance.Equal(math.NewInt(70)) {
		t.Errorf("want alice balance 70, got %s", aliceBalance)
	}
	bobBalance, err := ctrl.Balance(db, basketID, bob.Address())
	assert.Nil(t, err)
	if !bobBalance.Equal(math.NewInt(30)) {
		t.Errorf("want bob balance 30, got %s", bobBalance)
	}

	// Transfers do not change the total supply.
	supply, err := ctrl.TotalSupply(db, basketID)
	assert.Nil(t, err)
	if !supply.Equal(math.NewInt(100)) {
		t.Errorf("want supply 100, got %s", supply)
	}
}
