// Package sparsetable provides a sparse table over an immutable sequence,
// answering idempotent range queries (range max, range min and the
// position of the winning element) in O(1) after O(N log N) preprocessing.
//
// Positions are 1-based and ranges are inclusive: Query(l, r) covers
// T[l], ..., T[r] for 1 <= l <= r <= Num().
package sparsetable

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"unsafe"

	"github.com/ugorji/go/codec"
)

var (
	// ErrOutOfRange is returned by Query and Lookup for positions outside [1, Num()].
	ErrOutOfRange = errors.New("range out of bounds")
	// ErrTooLarge is returned by New when the table would exceed MaxLen or the memory budget.
	ErrTooLarge = errors.New("sequence too large")
	// ErrCorrupt is returned when decoding an encoded table fails.
	ErrCorrupt = errors.New("corrupt sparse table")
	// ErrNilOperator is returned when no Operator is supplied.
	ErrNilOperator = errors.New("nil operator")
)

// MaxLen is the longest sequence a SparseTable accepts.
// Positions are stored as int32.
const MaxLen = math.MaxInt32

// SparseTable is the core of the library.
// It is immutable once built and safe for concurrent use.
type SparseTable[T comparable] struct {
	op       Operator[T]
	vals     []T       // vals[0] = op.Neutral(), vals[1...num] = T
	levels   [][]int32 // levels[k][i] = best position in T[i, i+2^k)
	logFloor []uint8   // logFloor[n] = floor(log2(n))
	num      int
}

type options struct {
	maxBytes uint64
}

// Option configures New.
type Option func(*options)

// WithMaxBytes makes New fail with ErrTooLarge when EstimateBytes exceeds n.
// Zero means no budget.
func WithMaxBytes(n uint64) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// New builds a SparseTable over a copy of seq.
func New[T comparable](seq []T, op Operator[T], opts ...Option) (*SparseTable[T], error) {
	if op == nil {
		return nil, ErrNilOperator
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	num := len(seq)
	if num > MaxLen {
		return nil, fmt.Errorf("%w: %d elements, limit is %d", ErrTooLarge, num, MaxLen)
	}
	if o.maxBytes > 0 {
		if need := EstimateBytes[T](num); need > o.maxBytes {
			return nil, fmt.Errorf("%w: needs %d bytes, budget is %d", ErrTooLarge, need, o.maxBytes)
		}
	}

	vals := make([]T, num+1)
	vals[0] = op.Neutral()
	copy(vals[1:], seq)

	st := &SparseTable[T]{op: op, vals: vals, num: num}
	st.buildLevels()
	st.logFloor = buildLogFloor(num, len(st.levels))
	return st, nil
}

// EstimateBytes returns the approximate heap footprint of a table over n values of T.
func EstimateBytes[T comparable](n int) uint64 {
	if n < 0 {
		return 0
	}
	var zero T
	total := uint64(n+1) * uint64(unsafe.Sizeof(zero)) // vals
	total += uint64(n + 1)                             // logFloor
	for k := 0; k < levelCount(n); k++ {
		total += uint64(rowLen(n, k)) * 4
	}
	return total
}

func (st *SparseTable[T]) buildLevels() {
	blen := levelCount(st.num)
	st.levels = make([][]int32, blen)

	base := make([]int32, rowLen(st.num, 0))
	for i := 1; i <= st.num; i++ {
		base[i] = int32(i)
	}
	st.levels[0] = base

	for k := 1; k < blen; k++ {
		prev := st.levels[k-1]
		half := 1 << (k - 1)
		cur := make([]int32, rowLen(st.num, k))
		for i := 1; i < len(cur); i++ {
			cur[i] = st.pick(prev[i], prev[i+half])
		}
		st.levels[k] = cur
	}
}

// pick returns whichever of the two positions wins under op; a on ties.
func (st *SparseTable[T]) pick(a, b int32) int32 {
	va := st.vals[a]
	if st.op.Combine(va, st.vals[b]) == va {
		return a
	}
	return b
}

// Num returns the number of values in T
func (st *SparseTable[T]) Num() int {
	return st.num
}

// Levels returns the number of precomputed window sizes (2^0 ... 2^(Levels()-1)).
func (st *SparseTable[T]) Levels() int {
	return len(st.levels)
}

// Operator returns the operator the table was built with.
func (st *SparseTable[T]) Operator() Operator[T] {
	return st.op
}

// Lookup returns T[pos]
func (st *SparseTable[T]) Lookup(pos int) (T, error) {
	if pos < 1 || pos > st.num {
		var zero T
		return zero, fmt.Errorf("%w: position %d not within [1, %d]", ErrOutOfRange, pos, st.num)
	}
	return st.vals[pos], nil
}

// Query returns the position and value of the aggregate of T[l...r].
// When several positions hold the winning value, the leftmost one is returned.
func (st *SparseTable[T]) Query(l, r int) (int, T, error) {
	if l < 1 || r > st.num || l > r {
		var zero T
		return 0, zero, fmt.Errorf("%w: [%d, %d] not within [1, %d]", ErrOutOfRange, l, r, st.num)
	}
	k := st.logFloor[r-l+1]
	row := st.levels[k]
	// the two windows overlap when r-l+1 is not a power of two; op is idempotent.
	pos := st.pick(row[l], row[r-(1<<k)+1])
	return int(pos), st.vals[pos], nil
}

// MarshalBinary encodes the SparseTable into a binary form and returns the result.
// The operator is not encoded.
func (st *SparseTable[T]) MarshalBinary() (out []byte, err error) {
	var bh codec.MsgpackHandle
	enc := codec.NewEncoderBytes(&out, &bh)
	err = enc.Encode(st.num)
	if err != nil {
		return
	}
	err = enc.Encode(len(st.levels))
	if err != nil {
		return
	}
	err = enc.Encode(st.vals[1:])
	if err != nil {
		return
	}
	for k := 0; k < len(st.levels); k++ {
		err = enc.Encode(st.levels[k])
		if err != nil {
			return
		}
	}
	return
}

// UnmarshalBinary decodes a SparseTable from a binary form generated by MarshalBinary.
// The receiver must already carry the operator the table was built with
// (see Unmarshal); entries that do not agree with it are reported as ErrCorrupt.
func (st *SparseTable[T]) UnmarshalBinary(in []byte) error {
	if st.op == nil {
		return ErrNilOperator
	}
	var bh codec.MsgpackHandle
	dec := codec.NewDecoderBytes(in, &bh)

	num, blen := 0, 0
	if err := dec.Decode(&num); err != nil {
		return fmt.Errorf("%w: num: %v", ErrCorrupt, err)
	}
	if num < 0 || num > MaxLen {
		return fmt.Errorf("%w: num %d", ErrCorrupt, num)
	}
	if err := dec.Decode(&blen); err != nil {
		return fmt.Errorf("%w: levels: %v", ErrCorrupt, err)
	}
	if blen != levelCount(num) {
		return fmt.Errorf("%w: %d levels for %d values", ErrCorrupt, blen, num)
	}
	var seq []T
	if err := dec.Decode(&seq); err != nil {
		return fmt.Errorf("%w: values: %v", ErrCorrupt, err)
	}
	if len(seq) != num {
		return fmt.Errorf("%w: %d values, want %d", ErrCorrupt, len(seq), num)
	}

	decoded := &SparseTable[T]{op: st.op, num: num}
	decoded.vals = make([]T, num+1)
	decoded.vals[0] = st.op.Neutral()
	copy(decoded.vals[1:], seq)
	decoded.levels = make([][]int32, blen)
	for k := 0; k < blen; k++ {
		var row []int32
		if err := dec.Decode(&row); err != nil {
			return fmt.Errorf("%w: level %d: %v", ErrCorrupt, k, err)
		}
		if err := decoded.checkRow(k, row); err != nil {
			return err
		}
		decoded.levels[k] = row
	}
	decoded.logFloor = buildLogFloor(num, blen)

	*st = *decoded
	return nil
}

// checkRow verifies row against the invariants of level k; levels below k must be in place.
func (st *SparseTable[T]) checkRow(k int, row []int32) error {
	if len(row) != rowLen(st.num, k) {
		return fmt.Errorf("%w: level %d has %d entries, want %d", ErrCorrupt, k, len(row), rowLen(st.num, k))
	}
	for i := 1; i < len(row); i++ {
		var want int32
		if k == 0 {
			want = int32(i)
		} else {
			prev := st.levels[k-1]
			want = st.pick(prev[i], prev[i+(1<<(k-1))])
		}
		if row[i] != want {
			return fmt.Errorf("%w: level %d position %d holds %d, want %d", ErrCorrupt, k, i, row[i], want)
		}
	}
	return nil
}

// Unmarshal decodes a table encoded by MarshalBinary, using op as its operator.
func Unmarshal[T comparable](in []byte, op Operator[T]) (*SparseTable[T], error) {
	if op == nil {
		return nil, ErrNilOperator
	}
	st := &SparseTable[T]{op: op}
	if err := st.UnmarshalBinary(in); err != nil {
		return nil, err
	}
	return st, nil
}

// levelCount returns the number of levels for num values: the bit length of num,
// so that every range length 1...num has its floor(log2) level.
func levelCount(num int) int {
	if num <= 1 {
		return 1
	}
	return bits.Len(uint(num))
}

// rowLen returns the length of levels[k]: index 0 is padding,
// then one entry per start position whose window T[i, i+2^k) fits.
func rowLen(num, k int) int {
	if n := num - (1 << k) + 2; n > 1 {
		return n
	}
	return 1
}

// buildLogFloor fills logFloor[1<<k] = k for each level,
// then copies the previous entry into the gaps.
func buildLogFloor(num, blen int) []uint8 {
	logFloor := make([]uint8, num+1)
	for k := 0; k < blen && 1<<k <= num; k++ {
		logFloor[1<<k] = uint8(k)
	}
	for n := 2; n <= num; n++ {
		if logFloor[n] == 0 {
			logFloor[n] = logFloor[n-1]
		}
	}
	return logFloor
}
