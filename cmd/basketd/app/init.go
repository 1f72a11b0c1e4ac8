package basketd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/commands/server"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/validators"
	abci "github.com/tendermint/tendermint/abci/types"

	"github.com/basketprotocol/basket/x/basket"
	"github.com/basketprotocol/basket/x/streamfee"
)

// GenInitOptions will produce some basic options for one rich
// account, to use for dev mode.
//
// The address may be provided as the first argument, otherwise a fresh key
// is generated and its recovery phrase printed. The generated account also
// becomes the configuration admin and the protocol fee recipient.
func GenInitOptions(args []string) (json.RawMessage, error) {
	code := "BSK"
	if len(args) > 0 {
		code = args[0]
	}

	var addr string
	if len(args) > 1 {
		addr = args[1]
	} else {
		// if no address provided, auto-generate one
		// and print out a recovery phrase
		bz, phrase, err := GenerateCoinKey()
		if err != nil {
			return nil, err
		}
		addr = bz.String()
		fmt.Println(phrase)
	}

	type (
		dict  map[string]interface{}
		array []interface{}
	)
	return json.Marshal(dict{
		"cash": array{
			dict{
				"address": addr,
				"coins": array{
					dict{
						"whole":  123456789,
						"ticker": code,
					},
				},
			},
		},
		"conf": dict{
			"cash": dict{
				"collector_address": addr,
				"minimal_fee":       coin.Coin{Whole: 0}, // no fee
			},
			"migration": dict{
				"admin": addr,
			},
			"basket": dict{
				"owner":                  addr,
				"enabled_modules":        array{streamfee.ModuleName},
				"protocol_fee_recipient": addr,
			},
			"streamfee": dict{
				"owner": addr,
				// a tenth of every streamed fee goes to the protocol
				"protocol_fee_percentage": "100000000000000000",
			},
		},
		"initialize_schema": []dict{
			{"pkg": "cash", "ver": 1},
			{"pkg": "sigs", "ver": 1},
			{"pkg": "validators", "ver": 1},
			{"pkg": "utils", "ver": 1},
			{"pkg": "basket", "ver": 1},
			{"pkg": "streamfee", "ver": 1},
		},
	})
}

// GenerateApp is used to create a stub for server/start.go command
func GenerateApp(options *server.Options) (abci.Application, error) {
	// db goes in a subdir, but "" -> "" for memdb
	var dbPath string
	if options.Home != "" {
		dbPath = filepath.Join(options.Home, "abci.db")
	}

	stack := Stack(options.MinFee)
	application, err := Application("basketd", stack, TxDecoder, dbPath, options.Debug)
	if err != nil {
		return nil, err
	}
	application.WithInit(app.ChainInitializers(
		&migration.Initializer{},
		&cash.Initializer{},
		&validators.Initializer{},
		&basket.Initializer{},
		&streamfee.Initializer{},
	))

	// set the logger and return
	application.WithLogger(options.Logger)
	return application, nil
}

// GenerateCoinKey returns the address of a public key,
// along with the secret phrase to recover the private key.
// You can give coins to this address and return the recovery
// phrase to the user to access them.
func GenerateCoinKey() (weave.Address, string, error) {
	privKey := crypto.GenPrivKeyEd25519()
	addr := privKey.PublicKey().Address()
	return addr, "TODO: add a recovery phrase", nil
}
