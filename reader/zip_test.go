package reader

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestZip(t *testing.T) {
	t.Run("lockstep rows in argument order", func(t *testing.T) {
		r := Zip(FromSlice([]int{1, 2}), FromSlice([]int{10, 20}))
		got, err := Collect(r)
		assert.NoError(t, err)
		assert.Equal(t, [][]int{{1, 10}, {2, 20}}, got)
	})

	t.Run("length mismatch fails", func(t *testing.T) {
		r := Zip(FromSlice([]int{1, 2, 3}), FromSlice([]int{10}))
		assert.True(t, r.Next())
		assert.False(t, r.Next())
		assert.True(t, errors.Is(r.Err(), ErrLengthMismatch))
	})

	t.Run("source failure outranks length mismatch", func(t *testing.T) {
		ioErr := errors.New("disk failure")
		broken := Map(FromSlice([]int{1, 2, 3}), func(v int) (int, error) {
			if v > 1 {
				return 0, ioErr
			}
			return v, nil
		})
		r := Zip(broken, FromSlice([]int{10, 20, 30}))
		assert.True(t, r.Next())
		assert.False(t, r.Next())
		assert.True(t, errors.Is(r.Err(), ioErr))
		assert.False(t, errors.Is(r.Err(), ErrLengthMismatch))
	})

	t.Run("no sources yields nothing", func(t *testing.T) {
		r := Zip[int]()
		assert.False(t, r.Next())
		assert.NoError(t, r.Err())
	})

	t.Run("size known when all sources agree", func(t *testing.T) {
		r := Zip(FromSlice([]int{1, 2}), FromSlice([]int{3, 4}))
		sz, ok := SizeOf(r)
		assert.True(t, ok)
		assert.Equal(t, int64(2), sz)
	})

	t.Run("size unknown on disagreement", func(t *testing.T) {
		r := Zip(FromSlice([]int{1, 2}), FromSlice([]int{3}))
		_, ok := SizeOf(r)
		assert.False(t, ok)
	})

	t.Run("reset rewinds all sources", func(t *testing.T) {
		r := Zip(FromSlice([]int{1}), FromSlice([]int{2}))
		first, err := Collect(r)
		assert.NoError(t, err)
		assert.NoError(t, ResetIfPossible(r))
		second, err := Collect(r)
		assert.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestBuffer(t *testing.T) {
	t.Run("drain consumes and closes the source", func(t *testing.T) {
		buf, err := Drain(FromSlice([]int{1, 2, 3}))
		assert.NoError(t, err)
		assert.Equal(t, 3, buf.Len())
	})

	t.Run("cursors are independent", func(t *testing.T) {
		buf := NewBuffer([]int{1, 2, 3})
		a := buf.Cursor()
		b := buf.Cursor()

		assert.True(t, a.Next())
		assert.True(t, a.Next())
		assert.Equal(t, 2, a.Record())

		got, err := Collect(b)
		assert.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, got)
	})

	t.Run("cursor is sized and restartable", func(t *testing.T) {
		c := NewBuffer([]int{1, 2}).Cursor()
		sz, ok := SizeOf(c)
		assert.True(t, ok)
		assert.Equal(t, int64(2), sz)

		_, err := Collect(c)
		assert.NoError(t, err)
		assert.NoError(t, ResetIfPossible(c))
		got, err := Collect(c)
		assert.NoError(t, err)
		assert.Equal(t, []int{1, 2}, got)
	})

	t.Run("drain surfaces the source error", func(t *testing.T) {
		boom := errors.New("boom")
		src := Map(FromSlice([]int{1, 2}), func(v int) (int, error) {
			if v == 2 {
				return 0, boom
			}
			return v, nil
		})
		_, err := Drain(src)
		assert.True(t, errors.Is(err, boom))
	})
}
