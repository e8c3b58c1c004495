package encoders

import (
	"testing"

	"github.com/htm-community/htmcore/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleEncoding(t *testing.T) {
	p := NewScalerEncoderParams(3, 1, 8)
	p.N = 14
	p.Periodic = true

	e, err := NewScalerEncoder(p)
	require.NoError(t, err)
	assert.Equal(t, 14, e.Width())

	encoded, err := e.Encode(1, false)
	require.NoError(t, err)
	expected := utils.Make1DBool([]int{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1})
	assert.Equal(t, expected, encoded)

	encoded, err = e.Encode(2, false)
	require.NoError(t, err)
	expected = utils.Make1DBool([]int{0, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.Equal(t, expected, encoded)

	encoded, err = e.Encode(3, false)
	require.NoError(t, err)
	expected = utils.Make1DBool([]int{0, 0, 0, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.Equal(t, expected, encoded)

	_, err = e.Encode(8, false)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestNonPeriodicEncoding(t *testing.T) {
	p := NewScalerEncoderParams(3, 0, 10)
	p.N = 14

	e, err := NewScalerEncoder(p)
	require.NoError(t, err)

	encoded, err := e.Encode(0, false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, utils.OnIndices(encoded))

	encoded, err = e.Encode(10, false)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 12, 13}, utils.OnIndices(encoded))

	idx, err := e.BucketIndex(10)
	require.NoError(t, err)
	assert.Equal(t, 11, idx)

	_, err = e.Encode(-5, false)
	assert.ErrorIs(t, err, ErrOutOfRange)

	p.ClipInput = true
	e, err = NewScalerEncoder(p)
	require.NoError(t, err)
	encoded, err = e.Encode(-5, false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, utils.OnIndices(encoded))
}

func TestEncodeInput(t *testing.T) {
	p := NewScalerEncoderParams(3, 1, 8)
	p.N = 14
	p.Periodic = true
	e, err := NewScalerEncoder(p)
	require.NoError(t, err)

	input, err := EncodeInput(e, 2, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, input)

	multi := &MultiEncoder{Encoders: []Encoder{e, e}}
	assert.Equal(t, 28, multi.Width())
	bits, err := multi.EncodeAll([]float64{1, 3}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 13, 17, 18, 19}, utils.OnIndices(bits))
}

func TestInvalidParams(t *testing.T) {
	_, err := NewScalerEncoder(NewScalerEncoderParams(4, 0, 10))
	assert.Error(t, err)

	_, err = NewScalerEncoder(NewScalerEncoderParams(3, 0, 10))
	assert.Error(t, err)
}

func TestOnBitsMatchW(t *testing.T) {
	for _, w := range []int{1, 3, 5, 7} {
		p := NewScalerEncoderParams(w, 0, 100)
		p.N = 50
		e, err := NewScalerEncoder(p)
		require.NoError(t, err)
		assert.Equal(t, w, e.W)
		assert.Equal(t, 50, e.Width())

		for _, v := range []float64{0, 25, 50, 100} {
			encoded, err := e.Encode(v, false)
			require.NoError(t, err)
			assert.Len(t, utils.OnIndices(encoded), w, "w %d value %v", w, v)
		}
	}
}
