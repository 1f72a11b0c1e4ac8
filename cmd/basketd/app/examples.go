package basketd

import (
	"cosmossdk.io/math"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/commands"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/x/sigs"

	"github.com/basketprotocol/basket/fixmath"
	"github.com/basketprotocol/basket/x/basket"
	"github.com/basketprotocol/basket/x/streamfee"
)

// Examples generates some example structs to dump out with testgen
func Examples() []commands.Example {
	priv := crypto.GenPrivKeyEd25519()
	pub := priv.PublicKey()
	manager := pub.Address()
	user := &sigs.UserData{
		Metadata: &weave.Metadata{Schema: 1},
		Pubkey:   pub,
		Sequence: 17,
	}

	wbtc := crypto.GenPrivKeyEd25519().PublicKey().Address()
	weth := crypto.GenPrivKeyEd25519().PublicKey().Address()

	createMsg := &basket.CreateBasketMsg{
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
	}

	initFeeMsg := &streamfee.InitializeMsg{
		Metadata:                  &weave.Metadata{Schema: 1},
		BasketID:                  []byte("\x00\x00\x00\x00\x00\x00\x00\x01"),
		FeeRecipient:              manager,
		MaxStreamingFeePercentage: fixmath.MustInt("50000000000000000"),
		StreamingFeePercentage:    fixmath.MustInt("20000000000000000"),
	}

	unsigned := Tx{
		Sum: &Tx_CreateBasketMsg{createMsg},
	}
	tx := unsigned
	sig, err := sigs.SignTx(priv, &tx, "test-123", 17)
	if err != nil {
		panic(err)
	}
	tx.Signatures = []*sigs.StdSignature{sig}

	return []commands.Example{
		{Filename: "priv_key", Obj: priv},
		{Filename: "pub_key", Obj: pub},
		{Filename: "user", Obj: user},
		{Filename: "create_basket_msg", Obj: createMsg},
		{Filename: "initialize_streamfee_msg", Obj: initFeeMsg},
		{Filename: "unsigned_tx", Obj: &unsigned},
		{Filename: "signed_tx", Obj: &tx},
	}
}
