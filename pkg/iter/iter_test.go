package iter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SliceIterator(t *testing.T) {
	it := NewSliceIterator([]int{1, 2, 3})
	values, err := Slice(it)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, values)
	assert.False(t, it.Next())
	assert.Equal(t, 0, it.At())
}

func Test_ForEach(t *testing.T) {
	var sum int
	require.NoError(t, ForEach(NewSliceIterator([]int{1, 2, 3}), func(v int) error {
		sum += v
		return nil
	}))
	assert.Equal(t, 6, sum)

	stop := errors.New("stop")
	var seen []int
	err := ForEach(NewSliceIterator([]int{1, 2, 3}), func(v int) error {
		seen = append(seen, v)
		if v == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, []int{1, 2}, seen)
}
