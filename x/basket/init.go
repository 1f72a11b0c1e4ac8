package basket

import (
	"cosmossdk.io/math"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"

	"github.com/basketprotocol/basket/fixmath"
)

// Initializer fulfils the Initializer interface to load data from the
// genesis file.
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis will parse initial basket configuration and any pre-seeded
// baskets from genesis and save them to the database.
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, kv weave.KVStore) error {
	var conf Configuration
	if err := gconf.InitConfig(kv, opts, "basket", &conf); err != nil {
		return errors.Wrap(err, "init config")
	}

	var seeds []struct {
		Manager    weave.Address `json:"manager"`
		Name       string        `json:"name"`
		Symbol     string        `json:"symbol"`
		Components []struct {
			Address weave.Address `json:"address"`
			Unit    math.Int      `json:"unit"`
		} `json:"components"`
		Modules []string `json:"modules"`
	}
	if err := opts.ReadOptions("basket", &seeds); err != nil {
		return errors.Wrap(err, "cannot unmarshal baskets")
	}

	bucket := NewBasketBucket()
	for i, seed := range seeds {
		b := Basket{
			Metadata:           &weave.Metadata{Schema: 1},
			Manager:            seed.Manager,
			Name:               seed.Name,
			Symbol:             seed.Symbol,
			Components:         make([]*Component, len(seed.Components)),
			Modules:            make([]*ModuleInfo, len(seed.Modules)),
			TotalSupply:        math.ZeroInt(),
			PositionMultiplier: fixmath.One,
		}
		for j, c := range seed.Components {
			b.Components[j] = &Component{Address: c.Address, Unit: c.Unit}
		}
		for j, name := range seed.Modules {
			if !contains(conf.EnabledModules, name) {
				return errors.Wrapf(ErrModuleNotEnabled, "basket %d: %q", i, name)
			}
			b.Modules[j] = &ModuleInfo{Name: name, State: ModuleState_PENDING}
		}
		if _, err := bucket.Put(kv, nil, &b); err != nil {
			return errors.Wrapf(err, "cannot store basket %d", i)
		}
	}
	return nil
}
