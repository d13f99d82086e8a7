package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/AlexWan0/go-sparsetable"
)

// ErrMalformedInput is returned when the input is not a well-formed sequence and query list.
var ErrMalformedInput = errors.New("malformed input")

const (
	maxTokenLen = 1 << 16
	// upper bound on capacity reserved up front for a declared count.
	preallocLimit = 1 << 20
)

// tokenReader reads whitespace-separated integers.
type tokenReader struct {
	sc    *bufio.Scanner
	count int
}

func newTokenReader(r io.Reader) *tokenReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxTokenLen)
	sc.Split(bufio.ScanWords)

	return &tokenReader{sc: sc}
}

func (tr *tokenReader) nextInt() (int64, error) {
	if !tr.sc.Scan() {
		if err := tr.sc.Err(); err != nil {
			return 0, fmt.Errorf("read input: %w", err)
		}

		return 0, fmt.Errorf("%w: unexpected end of input after %d tokens", ErrMalformedInput, tr.count)
	}

	tr.count++

	v, err := strconv.ParseInt(tr.sc.Text(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: token %d: %q is not an integer", ErrMalformedInput, tr.count, tr.sc.Text())
	}

	return v, nil
}

// nextCount reads a count in [0, limit].
func (tr *tokenReader) nextCount(limit int) (int, error) {
	v, err := tr.nextInt()
	if err != nil {
		return 0, err
	}

	if v < 0 || v > int64(limit) {
		return 0, fmt.Errorf("%w: count %d not within [0, %d]", ErrMalformedInput, v, limit)
	}

	return int(v), nil
}

// readSequence reads N followed by N values.
func readSequence(tr *tokenReader) ([]int64, error) {
	n, err := tr.nextCount(sparsetable.MaxLen)
	if err != nil {
		return nil, fmt.Errorf("sequence length: %w", err)
	}

	seq := make([]int64, 0, min(n, preallocLimit))

	for i := 1; i <= n; i++ {
		v, err := tr.nextInt()
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}

		seq = append(seq, v)
	}

	return seq, nil
}

// readRange reads one (l, r) pair.
func readRange(tr *tokenReader) (int, int, error) {
	l, err := tr.nextInt()
	if err != nil {
		return 0, 0, err
	}

	r, err := tr.nextInt()
	if err != nil {
		return 0, 0, err
	}

	return int(l), int(r), nil
}
