package basket

import (
	"cosmossdk.io/math"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/orm"
)

// ModuleRemover is implemented by extensions that keep per-basket state and
// must tear it down when the manager detaches them from a basket. Only the
// basket message handlers invoke this hook.
type ModuleRemover interface {
	RemoveModule(db weave.KVStore, basketID []byte) error
}

// Controller exposes basket state to other extensions without giving them
// direct bucket access. Attached modules operate on baskets exclusively
// through this type.
type Controller struct {
	baskets  orm.ModelBucket
	holdings orm.ModelBucket
}

// NewController returns a controller bound to the standard basket buckets.
func NewController() *Controller {
	return &Controller{
		baskets:  NewBasketBucket(),
		holdings: NewHoldingBucket(),
	}
}

// Get returns the basket with the given ID.
func (c *Controller) Get(db weave.KVStore, basketID []byte) (*Basket, error) {
	var b Basket
	if err := c.baskets.One(db, basketID, &b); err != nil {
		return nil, errors.Wrap(err, "cannot get basket")
	}
	return &b, nil
}

// Manager returns the manager address of a basket.
func (c *Controller) Manager(db weave.KVStore, basketID []byte) (weave.Address, error) {
	b, err := c.Get(db, basketID)
	if err != nil {
		return nil, err
	}
	return b.Manager, nil
}

// IsPending returns true if the module is attached to the basket and not yet
// initialized.
func (c *Controller) IsPending(db weave.KVStore, basketID []byte, module string) (bool, error) {
	b, err := c.Get(db, basketID)
	if err != nil {
		return false, err
	}
	mod := b.moduleInfo(module)
	return mod != nil && mod.State == ModuleState_PENDING, nil
}

// IsInitialized returns true if the module is attached to the basket and
// initialized.
func (c *Controller) IsInitialized(db weave.KVStore, basketID []byte, module string) (bool, error) {
	b, err := c.Get(db, basketID)
	if err != nil {
		return false, err
	}
	mod := b.moduleInfo(module)
	return mod != nil && mod.State == ModuleState_INITIALIZED, nil
}

// InitializeModule transitions an attached module from pending to
// initialized.
func (c *Controller) InitializeModule(db weave.KVStore, basketID []byte, module string) error {
	b, err := c.Get(db, basketID)
	if err != nil {
		return err
	}
	mod := b.moduleInfo(module)
	if mod == nil {
		return errors.Wrapf(ErrNoSuchModule, "%q", module)
	}
	if mod.State != ModuleState_PENDING {
		return errors.Wrapf(errors.ErrState, "module %q is not pending", module)
	}
	mod.State = ModuleState_INITIALIZED
	_, err = c.baskets.Put(db, basketID, b)
	return err
}

// TotalSupply returns the amount of basket tokens in circulation.
func (c *Controller) TotalSupply(db weave.KVStore, basketID []byte) (math.Int, error) {
	b, err := c.Get(db, basketID)
	if err != nil {
		return math.Int{}, err
	}
	return b.TotalSupply, nil
}

// Mint creates amount new basket tokens on the recipient account and grows
// the total supply accordingly. Minting a zero amount is a no-op.
func (c *Controller) Mint(db weave.KVStore, basketID []byte, recipient weave.Address, amount math.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return errors.Wrap(errors.ErrAmount, "mint amount must not be negative")
	}
	if amount.IsZero() {
		return nil
	}
	if err := recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}

	b, err := c.Get(db, basketID)
	if err != nil {
		return err
	}
	b.TotalSupply = b.TotalSupply.Add(amount)
	if _, err := c.baskets.Put(db, basketID, b); err != nil {
		return errors.Wrap(err, "cannot update supply")
	}

	key := holdingKey(basketID, recipient)
	var h Holding
	switch err := c.holdings.One(db, key, &h); {
	case err == nil:
		h.Amount = h.Amount.Add(amount)
	case errors.ErrNotFound.Is(err):
		h = Holding{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
			Address:  recipient,
			Amount:   amount,
		}
	default:
		return errors.Wrap(err, "cannot get holding")
	}
	if _, err := c.holdings.Put(db, key, &h); err != nil {
		return errors.Wrap(err, "cannot update holding")
	}
	return nil
}

// Move transfers basket tokens between two accounts.
func (c *Controller) Move(db weave.KVStore, basketID []byte, src, dst weave.Address, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "transfer amount must be positive")
	}

	var from Holding
	if err := c.holdings.One(db, holdingKey(basketID, src), &from); err != nil {
		return errors.Wrap(err, "source holding")
	}
	if from.Amount.LT(amount) {
		return errors.Wrap(errors.ErrAmount, "insufficient balance")
	}
	from.Amount = from.Amount.Sub(amount)
	if _, err := c.holdings.Put(db, holdingKey(basketID, src), &from); err != nil {
		return errors.Wrap(err, "cannot update source holding")
	}

	key := holdingKey(basketID, dst)
	var to Holding
	switch err := c.holdings.One(db, key, &to); {
	case err == nil:
		to.Amount = to.Amount.Add(amount)
	case errors.ErrNotFound.Is(err):
		to = Holding{
			Metadata: &weave.Metadata{Schema: 1},
			BasketID: basketID,
			Address:  dst,
			Amount:   amount,
		}
	default:
		return errors.Wrap(err, "destination holding")
	}
	if _, err := c.holdings.Put(db, key, &to); err != nil {
		return errors.Wrap(err, "cannot update destination holding")
	}
	return nil
}

// Balance returns the basket token balance of an address. Accounts that
// never received tokens have a zero balance.
func (c *Controller) Balance(db weave.KVStore, basketID []byte, addr weave.Address) (math.Int, error) {
	var h Holding
	switch err := c.holdings.One(db, holdingKey(basketID, addr), &h); {
	case err == nil:
		return h.Amount, nil
	case errors.ErrNotFound.Is(err):
		return math.ZeroInt(), nil
	default:
		return math.Int{}, errors.Wrap(err, "cannot get holding")
	}
}

// PositionMultiplier returns the current position multiplier of a basket.
func (c *Controller) PositionMultiplier(db weave.KVStore, basketID []byte) (math.Int, error) {
	b, err := c.Get(db, basketID)
	if err != nil {
		return math.Int{}, err
	}
	return b.PositionMultiplier, nil
}

// SetPositionMultiplier rescales the basket position multiplier. The new
// value must be positive.
func (c *Controller) SetPositionMultiplier(db weave.KVStore, basketID []byte, multiplier math.Int) error {
	if multiplier.IsNil() || !multiplier.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "position multiplier must be positive")
	}
	b, err := c.Get(db, basketID)
	if err != nil {
		return err
	}
	b.PositionMultiplier = multiplier
	_, err = c.baskets.Put(db, basketID, b)
	return err
}

// IsModuleEnabled returns true if the module name is on the configuration
// whitelist.
func (c *Controller) IsModuleEnabled(db weave.KVStore, module string) (bool, error) {
	conf, err := loadConf(db)
	if err != nil {
		return false, err
	}
	for _, name := range conf.EnabledModules {
		if name == module {
			return true, nil
		}
	}
	return false, nil
}

// ProtocolFeeRecipient returns the protocol treasury address.
func (c *Controller) ProtocolFeeRecipient(db weave.KVStore) (weave.Address, error) {
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if len(conf.ProtocolFeeRecipient) == 0 {
		return nil, errors.Wrap(errors.ErrState, "protocol fee recipient not configured")
	}
	return conf.ProtocolFeeRecipient, nil
}

func loadConf(db weave.KVStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "basket", &conf); err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	return &conf, nil
}
