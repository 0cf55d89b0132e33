package dtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsmSpelling(t *testing.T) {
	cases := []struct {
		dt   DataType
		want string
	}{
		{Half, "f16"},
		{BFloat16, "bf16"},
		{Float, "f32"},
		{Double, "f64"},
		{Int32, "i32"},
		{Int64, "i64"},
		{Boolean, "i1"},
	}
	for _, c := range cases {
		got, ok := c.dt.AsmSpelling()
		require.True(t, ok, "dtype %s should have an asm spelling", c.dt)
		assert.Equal(t, c.want, got)
	}

	_, ok := NotSet.AsmSpelling()
	assert.False(t, ok, "NotSet should not have an asm spelling")
}

func TestScalarRoundTrip(t *testing.T) {
	s := ScalarFromFloat64(Half, -32.5)
	assert.InDelta(t, -32.5, s.Float64(), 1e-3)

	s = ScalarFromFloat64(Float, 128)
	assert.Equal(t, float64(128), s.Float64())

	s = ScalarFromInt64(Boolean, 1)
	assert.Equal(t, float64(1), s.Float64())
}

func TestIsFloatIsInt(t *testing.T) {
	assert.True(t, Float.IsFloat())
	assert.True(t, Half.IsFloat())
	assert.False(t, Int32.IsFloat())
	assert.True(t, Int32.IsInt())
	assert.False(t, Boolean.IsInt())
}
