package streamfee

import (
	"cosmossdk.io/math"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"

	"github.com/basketprotocol/basket/fixmath"
)

func init() {
	migration.MustRegister(1, &FeeState{}, migration.NoModification)
}

var _ orm.CloneableData = (*FeeState)(nil)

func (s *FeeState) Validate() error {
	if err := s.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := s.FeeRecipient.Validate(); err != nil {
		return errors.Wrap(err, "fee recipient")
	}
	if s.MaxStreamingFeePercentage.IsNil() || s.MaxStreamingFeePercentage.IsNegative() {
		return errors.Wrap(errors.ErrModel, "max streaming fee must not be negative")
	}
	if s.MaxStreamingFeePercentage.GTE(fixmath.One) {
		return errors.Wrap(errors.ErrModel, "max streaming fee must be less than 100%")
	}
	if s.StreamingFeePercentage.IsNil() || s.StreamingFeePercentage.IsNegative() {
		return errors.Wrap(errors.ErrModel, "streaming fee must not be negative")
	}
	if s.StreamingFeePercentage.GT(s.MaxStreamingFeePercentage) {
		return errors.Wrap(errors.ErrModel, "streaming fee must not exceed the maximum")
	}
	return nil
}

func (s *FeeState) Copy() orm.CloneableData {
	return &FeeState{
		Metadata:                  s.Metadata.Copy(),
		FeeRecipient:              s.FeeRecipient.Clone(),
		MaxStreamingFeePercentage: cloneInt(s.MaxStreamingFeePercentage),
		StreamingFeePercentage:    cloneInt(s.StreamingFeePercentage),
		LastStreamingFeeTimestamp: s.LastStreamingFeeTimestamp,
	}
}

func cloneInt(i math.Int) math.Int {
	if i.IsNil() {
		return i
	}
	return math.NewIntFromBigInt(i.BigInt())
}

// NewFeeStateBucket returns a bucket for fee states, keyed by basket ID.
func NewFeeStateBucket() orm.ModelBucket {
	b := orm.NewModelBucket("feestate", &FeeState{})
	return migration.NewModelBucket("streamfee", b)
}

// PendingFeePercentage returns the share of the basket that the streaming
// fee has consumed since the last settlement, as a fixed point percentage.
// It is a pure projection and does not modify the state.
func PendingFeePercentage(state *FeeState, now weave.UnixTime) (math.Int, error) {
	elapsed := int64(now) - int64(state.LastStreamingFeeTimestamp)
	if elapsed < 0 {
		return math.Int{}, errors.Wrap(errors.ErrState, "current time before last settlement")
	}
	return fixmath.MulDiv(math.NewInt(elapsed), state.StreamingFeePercentage, fixmath.YearSeconds)
}
