package basket

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"

	"github.com/basketprotocol/basket/fixmath"
)

func TestControllerMintAndSupply(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "basket")

	ctrl := NewController()
	manager := weavetest.NewCondition()
	holder := weavetest.NewCondition().Address()

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

	assert.Nil(t, ctrl.Mint(db, basketID, holder, math.NewInt(40)))
	assert.Nil(t, ctrl.Mint(db, basketID, holder, math.NewInt(2)))

	supply, err := ctrl.TotalSupply(db, basketID)
	assert.Nil(t, err)
	if !supply.Equal(math.NewInt(42)) {
		t.Errorf("want supply 42, got %s", supply)
	}
	balance, err := ctrl.Balance(db, basketID, holder)
	assert.Nil(t, err)
	if !balance.Equal(math.NewInt(42)) {
		t.Errorf("want balance 42, got %s", balance)
	}

	// Minting zero is a silent no-op, negative amounts are rejected.
	assert.Nil(t, ctrl.Mint(db, basketID, holder, math.ZeroInt()))
	if err := ctrl.Mint(db, basketID, holder, math.NewInt(-1)); !errors.ErrAmount.Is(err) {
		t.Fatalf("want amount error, got %v", err)
	}
}

func TestControllerModuleLifecycle(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "basket")

	ctrl := NewController()
	basketID, err := NewBasketBucket().Put(db, nil, &Basket{
		Metadata: &weave.Metadata{Schema: 1},
		Manager:  weavetest.NewCondition().Address(),
		Components: []*Component{
			{Address: weavetest.NewCondition().Address(), Unit: fixmath.One},
		},
		Modules:            []*ModuleInfo{{Name: "streamfee", State: ModuleState_PENDING}},
		TotalSupply:        math.ZeroInt(),
		PositionMultiplier: fixmath.One,
	})
	assert.Nil(t, err)

	pending, err := ctrl.IsPending(db, basketID, "streamfee")
	assert.Nil(t, err)
	if !pending {
		t.Fatal("module must start pending")
	}

	assert.Nil(t, ctrl.InitializeModule(db, basketID, "streamfee"))

	initialized, err := ctrl.IsInitialized(db, basketID, "streamfee")
	assert.Nil(t, err)
	if !initialized {
		t.Fatal("module must be initialized")
	}

	// A second initialization is rejected.
	if err := ctrl.InitializeModule(db, basketID, "streamfee"); !errors.ErrState.Is(err) {
		t.Fatalf("want state error, got %v", err)
	}
	// Unattached modules cannot initialize.
	if err := ctrl.InitializeModule(db, basketID, "unknown"); !ErrNoSuchModule.Is(err) {
		t.Fatalf("want no such module error, got %v", err)
	}
}

func TestControllerPositionMultiplier(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "basket")

	ctrl := NewController()
	basketID, err := NewBasketBucket().Put(db, nil, &Basket{
		Metadata: &weave.Metadata{Schema: 1},
		Manager:  weavetest.NewCondition().Address(),
		Components: []*Component{
			{Address: weavetest.NewCondition().Address(), Unit: fixmath.One},
		},
		Modules:            []*ModuleInfo{{Name: "streamfee", State: ModuleState_PENDING}},
		TotalSupply:        math.ZeroInt(),
		PositionMultiplier: fixmath.One,
	})
	assert.Nil(t, err)

	next := fixmath.MustInt("990000000000000000")
	assert.Nil(t, ctrl.SetPositionMultiplier(db, basketID, next))
	got, err := ctrl.PositionMultiplier(db, basketID)
	assert.Nil(t, err)
	if !got.Equal(next) {
		t.Errorf("want multiplier %s, got %s", next, got)
	}

	if err := ctrl.SetPositionMultiplier(db, basketID, math.ZeroInt()); !errors.ErrAmount.Is(err) {
		t.Fatalf("want amount error, got %v", err)
	}
}

func TestControllerConfigurationReads(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "basket")

	ctrl := NewController()
	treasury := weavetest.NewCondition().Address()

	if err := gconf.Save(db, "basket", &Configuration{
		EnabledModules:       []string{"streamfee"},
		ProtocolFeeRecipient: treasury,
	}); err != nil {
		t.Fatalf("cannot save gconf configuration: %s", err)
	}

	enabled, err := ctrl.IsModuleEnabled(db, "streamfee")
	assert.Nil(t, err)
	if !enabled {
		t.Error("streamfee must be enabled")
	}
	enabled, err = ctrl.IsModuleEnabled(db, "unknown")
	assert.Nil(t, err)
	if enabled {
		t.Error("unknown must not be enabled")
	}

	recipient, err := ctrl.ProtocolFeeRecipient(db)
	assert.Nil(t, err)
	assert.Equal(t, treasury, recipient)

	// Without a configured treasury the read fails.
	if err := gconf.Save(db, "basket", &Configuration{
		EnabledModules: []string{"streamfee"},
	}); err != nil {
		t.Fatalf("cannot save gconf configuration: %s", err)
	}
	if _, err := ctrl.ProtocolFeeRecipient(db); !errors.ErrState.Is(err) {
		t.Fatalf("want state error, got %v", err)
	}
}
