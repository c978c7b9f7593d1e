package chain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func u256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func toUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case *big.Int:
		if t == nil || !t.IsUint64() {
			return 0, fmt.Errorf("value %v does not fit uint64", t)
		}
		return t.Uint64(), nil
	case uint64:
		return t, nil
	case uint8:
		return uint64(t), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

func toAmount(v any) (*uint256.Int, error) {
	b, ok := v.(*big.Int)
	if !ok || b == nil {
		return nil, fmt.Errorf("unexpected amount type %T", v)
	}
	z, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("amount %s overflows uint256", b)
	}
	return z, nil
}

func toTime(v any) (time.Time, error) {
	n, err := toUint64(v)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(n), 0).UTC(), nil
}

func toUint64s(v any) ([]uint64, error) {
	raw, ok := v.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected list type %T", v)
	}
	out := make([]uint64, 0, len(raw))
	for _, b := range raw {
		n, err := toUint64(b)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func toBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected bool type %T", v)
	}
	return b, nil
}

func toAddress(v any) (common.Address, error) {
	a, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected address type %T", v)
	}
	return a, nil
}

// decoder collects the first conversion error so tuple decoding reads flat.
type decoder struct {
	vals []any
	err  error
}

func (d *decoder) at(i int) any {
	if d.err != nil {
		return nil
	}
	if i >= len(d.vals) {
		d.err = fmt.Errorf("tuple has %d values, want index %d", len(d.vals), i)
		return nil
	}
	return d.vals[i]
}

func (d *decoder) uintAt(i int) uint64 {
	v := d.at(i)
	if d.err != nil {
		return 0
	}
	n, err := toUint64(v)
	d.err = err
	return n
}

func (d *decoder) amountAt(i int) *uint256.Int {
	v := d.at(i)
	if d.err != nil {
		return nil
	}
	n, err := toAmount(v)
	d.err = err
	return n
}

func (d *decoder) timeAt(i int) time.Time {
	v := d.at(i)
	if d.err != nil {
		return time.Time{}
	}
	t, err := toTime(v)
	d.err = err
	return t
}

func (d *decoder) boolAt(i int) bool {
	v := d.at(i)
	if d.err != nil {
		return false
	}
	b, err := toBool(v)
	d.err = err
	return b
}

func (d *decoder) addressAt(i int) common.Address {
	v := d.at(i)
	if d.err != nil {
		return common.Address{}
	}
	a, err := toAddress(v)
	d.err = err
	return a
}

func (d *decoder) uintsAt(i int) []uint64 {
	v := d.at(i)
	if d.err != nil {
		return nil
	}
	out, err := toUint64s(v)
	d.err = err
	return out
}
