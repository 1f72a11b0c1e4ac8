package basketd_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/iov-one/weave"
	weaveApp "github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/commands/server"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x/sigs"
	"github.com/iov-one/weave/x/validators"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"

	basketd "github.com/basketprotocol/basket/cmd/basketd/app"
	"github.com/basketprotocol/basket/fixmath"
	"github.com/basketprotocol/basket/x/basket"
	"github.com/basketprotocol/basket/x/streamfee"
)

const appState = `
  {
    "cash": [
      {
        "address": "%s",
        "coins": [
          {"whole": 50000, "ticker": "BSK"}
        ]
      }
    ],
    "conf": {
      "cash": {
        "collector_address": "%s",
        "minimal_fee": {}
      },
      "migration": {
        "admin": "%s"
      },
      "basket": {
        "owner": "%s",
        "enabled_modules": ["streamfee"],
        "protocol_fee_recipient": "%s"
      },
      "streamfee": {
        "owner": "%s",
        "protocol_fee_percentage": "100000000000000000"
      }
    },
    "initialize_schema": [
      {"pkg": "cash", "ver": 1},
      {"pkg": "sigs", "ver": 1},
      {"pkg": "validators", "ver": 1},
      {"pkg": "utils", "ver": 1},
      {"pkg": "basket", "ver": 1},
      {"pkg": "streamfee", "ver": 1}
    ]
  }
`

type appFixture struct {
	chainID string
	manager *crypto.PrivateKey
	app     abci.Application
}

func newAppFixture(t *testing.T) *appFixture {
	t.Helper()

	pk := crypto.GenPrivKeyEd25519()
	addr := pk.PublicKey().Address().String()
	chainID := fmt.Sprintf("chain-test-%d", rand.Intn(99999999))

	myApp, err := basketd.GenerateApp(&server.Options{
		MinFee: coin.Coin{},
		Home:   "",
		Logger: log.NewNopLogger(),
		Debug:  true,
	})
	assert.Nil(t, err)

	state := fmt.Sprintf(appState, addr, addr, addr, addr, addr, addr)
	myApp.InitChain(abci.RequestInitChain{
		AppStateBytes: []byte(state),
		ChainId:       chainID,
	})
	myApp.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{
		Height: 1,
		Time:   time.Unix(1599990000, 0),
	}})
	myApp.EndBlock(abci.RequestEndBlock{})
	cres := myApp.Commit()
	if len(cres.Data) == 0 {
		t.Fatal("first block must not be empty")
	}

	return &appFixture{
		chainID: chainID,
		manager: pk,
		app:     myApp,
	}
}

// signAndCommit runs the transaction through a full block at the given
// height and block time.
func (f *appFixture) signAndCommit(t *testing.T, tx *basketd.Tx, nonce int64, height int64, blockTime time.Time) abci.ResponseDeliverTx {
	t.Helper()

	sig, err := sigs.SignTx(f.manager, tx, f.chainID, nonce)
	assert.Nil(t, err)
	tx.Signatures = append(tx.Signatures, sig)

	txBytes, err := tx.Marshal()
	assert.Nil(t, err)

	f.app.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{
		Height: height,
		Time:   blockTime,
	}})
	chres := f.app.CheckTx(txBytes)
	assert.Equal(t, uint32(0), chres.Code)

	dres := f.app.DeliverTx(txBytes)
	assert.Equal(t, uint32(0), dres.Code)

	f.app.EndBlock(abci.RequestEndBlock{})
	cres := f.app.Commit()
	assert.Equal(t, true, len(cres.Data) != 0)
	return dres
}

func (f *appFixture) queryOne(t *testing.T, path string, data []byte, dst weave.Persistent) {
	t.Helper()
	qres := f.app.Query(abci.RequestQuery{Path: path, Data: data})
	if qres.Code != 0 {
		t.Fatalf("query %s failed: %s", path, qres.Log)
	}
	if len(qres.Value) == 0 {
		t.Fatalf("query %s returned no value", path)
	}
	assert.Nil(t, weaveApp.UnmarshalOneResult(qres.Value, dst))
}

func TestBasketLifecycle(t *testing.T) {
	f := newAppFixture(t)
	manager := f.manager.PublicKey().Address()

	genesisTime := time.Unix(1600000000, 0)
	// Half of a Julian year at a 2% annual rate rescales by 1%.
	accrualTime := genesisTime.Add(time.Duration(fixmath.SecondsPerYear/2) * time.Second)

	wbtc := crypto.GenPrivKeyEd25519().PublicKey().Address()
	weth := crypto.GenPrivKeyEd25519().PublicKey().Address()

	// Create a basket with the streaming fee module attached.
	createTx := &basketd.Tx{
		Sum: &basketd.Tx_CreateBasketMsg{CreateBasketMsg: &basket.CreateBasketMsg{
			Metadata:   &weave.Metadata{Schema: 1},
			Components: []weave.Address{wbtc, weth},
			Units: []math.Int{
				fixmath.MustInt("500000000000000000"),
				fixmath.MustInt("1500000000000000000"),
			},
			Modules: []string{streamfee.ModuleName},
			Manager: manager,
			Name:    "BTC ETH Index",
			Symbol:  "BEI",
		}},
	}
	dres := f.signAndCommit(t, createTx, 0, 2, genesisTime)
	basketID := dres.Data
	if len(basketID) == 0 {
		t.Fatal("basket creation must return the new basket key")
	}

	var created basket.Basket
	f.queryOne(t, "/baskets", basketID, &created)
	assert.Equal(t, "BEI", created.Symbol)
	assert.Equal(t, fixmath.One, created.PositionMultiplier)
	assert.Equal(t, 1, len(created.Modules))
	assert.Equal(t, basket.ModuleState_PENDING, created.Modules[0].State)

	// Initialize the streaming fee module at a 2% annual rate.
	initTx := &basketd.Tx{
		Sum: &basketd.Tx_InitializeStreamfeeMsg{InitializeStreamfeeMsg: &streamfee.InitializeMsg{
			Metadata:                  &weave.Metadata{Schema: 1},
			BasketID:                  basketID,
			FeeRecipient:              manager,
			MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
			StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
		}},
	}
	f.signAndCommit(t, initTx, 1, 3, genesisTime)

	var initialized basket.Basket
	f.queryOne(t, "/baskets", basketID, &initialized)
	assert.Equal(t, basket.ModuleState_INITIALIZED, initialized.Modules[0].State)

	var state streamfee.FeeState
	f.queryOne(t, "/feestates", basketID, &state)
	assert.Equal(t, weave.AsUnixTime(genesisTime), state.LastStreamingFeeTimestamp)

	// Accrue half a year later. The basket supply is still zero so
	// nothing is minted, but the position multiplier must rescale.
	accrueTx := &basketd.Tx{
		Sum: &basketd.Tx_AccrueFeeMsg{AccrueFeeMsg: &streamfee.AccrueFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
		}},
	}
	f.signAndCommit(t, accrueTx, 2, 4, accrualTime)

	var accrued basket.Basket
	f.queryOne(t, "/baskets", basketID, &accrued)
	assert.Equal(t, fixmath.MustInt("990000000000000000"), accrued.PositionMultiplier)

	var settled streamfee.FeeState
	f.queryOne(t, "/feestates", basketID, &settled)
	assert.Equal(t, weave.AsUnixTime(accrualTime), settled.LastStreamingFeeTimestamp)
}

func TestTxDecoderRoundtrip(t *testing.T) {
	tx := &basketd.Tx{
		Sum: &basketd.Tx_AccrueFeeMsg{AccrueFeeMsg: &streamfee.AccrueFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: []byte("basket001"),
		}},
	}
	raw, err := tx.Marshal()
	assert.Nil(t, err)

	decoded, err := basketd.TxDecoder(raw)
	assert.Nil(t, err)
	msg, err := decoded.GetMsg()
	assert.Nil(t, err)
	assert.Equal(t, "streamfee/accrue_fee", msg.Path())
}

func TestTxValidatorUpdateRoundtrip(t *testing.T) {
	tx := &basketd.Tx{
		Sum: &basketd.Tx_ApplyDiffMsg{ApplyDiffMsg: &validators.ApplyDiffMsg{
			Metadata: &weave.Metadata{Schema: 1},
		}},
	}
	raw, err := tx.Marshal()
	assert.Nil(t, err)

	var decoded basketd.Tx
	assert.Nil(t, decoded.Unmarshal(raw))
	if decoded.GetApplyDiffMsg() == nil {
		t.Fatal("validator update message must survive the roundtrip")
	}
}

func TestGetSignBytesExcludesSignatures(t *testing.T) {
	tx := &basketd.Tx{
		Sum: &basketd.Tx_AccrueFeeMsg{AccrueFeeMsg: &streamfee.AccrueFeeMsg{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: []byte("basket001"),
		}},
	}
	before, err := tx.GetSignBytes()
	assert.Nil(t, err)

	pk := crypto.GenPrivKeyEd25519()
	sig, err := sigs.SignTx(pk, tx, "test-chain", 0)
	assert.Nil(t, err)
	tx.Signatures = []*sigs.StdSignature{sig}

	after, err := tx.GetSignBytes()
	assert.Nil(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, len(tx.Signatures))
}
