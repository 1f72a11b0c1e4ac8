package fixmath

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestMulDiv(t *testing.T) {
	cases := map[string]struct {
		A       math.Int
		B       math.Int
		Div     math.Int
		Want    math.Int
		WantErr *errors.Error
	}{
		"exact": {
			A:    math.NewInt(6),
			B:    math.NewInt(7),
			Div:  math.NewInt(3),
			Want: math.NewInt(14),
		},
		"truncates toward zero": {
			A:    math.NewInt(10),
			B:    math.NewInt(10),
			Div:  math.NewInt(3),
			Want: math.NewInt(33),
		},
		"full precision intermediate product": {
			// a*b does not fit in 256 bits but the quotient does.
			A:    MustInt("100000000000000000000000000000000000000000000000000000000000000000000000000000"),
			B:    MustInt("100000000000000000000000000000000000000000000000000000000000000000000000000000"),
			Div:  MustInt("100000000000000000000000000000000000000000000000000000000000000000000000000000"),
			Want: MustInt("100000000000000000000000000000000000000000000000000000000000000000000000000000"),
		},
		"zero divisor": {
			A:       math.NewInt(1),
			B:       math.NewInt(1),
			Div:     math.ZeroInt(),
			WantErr: errors.ErrInput,
		},
		"quotient out of range": {
			A:       MustInt("100000000000000000000000000000000000000000000000000000000000000000000000000000"),
			B:       MustInt("100000000000000000000000000000000000000000000000000000000000000000000000000000"),
			Div:     math.NewInt(1),
			WantErr: errors.ErrOverflow,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			res, err := MulDiv(tc.A, tc.B, tc.Div)
			assert.IsErr(t, tc.WantErr, err)
			if tc.WantErr != nil {
				return
			}
			if !res.Equal(tc.Want) {
				t.Fatalf("want %s, got %s", tc.Want, res)
			}
		})
	}
}

func TestPreciseMul(t *testing.T) {
	// 2% of 100 tokens, everything at 18 decimals.
	pct := MustInt("20000000000000000")
	supply := MustInt("100000000000000000000")
	res, err := PreciseMul(pct, supply)
	assert.Nil(t, err)
	if want := MustInt("2000000000000000000"); !res.Equal(want) {
		t.Fatalf("want %s, got %s", want, res)
	}
}

func TestPreciseDiv(t *testing.T) {
	res, err := PreciseDiv(math.NewInt(1), math.NewInt(3))
	assert.Nil(t, err)
	if want := MustInt("333333333333333333"); !res.Equal(want) {
		t.Fatalf("want %s, got %s", want, res)
	}

	if _, err := PreciseDiv(math.NewInt(1), math.ZeroInt()); !errors.ErrInput.Is(err) {
		t.Fatalf("want division by zero error, got %v", err)
	}
}

func TestNonNegative(t *testing.T) {
	if _, err := NonNegative(math.NewInt(-1)); !errors.ErrOverflow.Is(err) {
		t.Fatalf("want overflow error, got %v", err)
	}
	res, err := NonNegative(math.NewInt(5))
	assert.Nil(t, err)
	if !res.Equal(math.NewInt(5)) {
		t.Fatalf("unexpected result: %s", res)
	}
}
