package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectTaps(t *testing.T) {
	taps := RectTaps(8)
	assert.Equal(t, []float64{-1, -1, 1, 1, 1, 1, -1, -1}, taps)
}

func TestCosTaps(t *testing.T) {
	taps := CosTaps(5)
	require.Len(t, taps, 5)

	assert.InDelta(t, -1.0, taps[0], 1e-12)
	assert.InDelta(t, 0.0, taps[1], 1e-12)
	assert.InDelta(t, 1.0, taps[2], 1e-12)
	assert.InDelta(t, 0.0, taps[3], 1e-12)
	assert.InDelta(t, -1.0, taps[4], 1e-12)
}

func TestNormalizeSums(t *testing.T) {
	tests := []struct {
		name string
		taps []float64
	}{
		{"rect", RectTaps(41)},
		{"cos", CosTaps(41)},
		{"cos even", CosTaps(24)},
		{"custom", []float64{-2, -1, 0, 1, 2, 2, 1, 0, -1, -2}},
		{"asymmetric", []float64{-5, 0.5, 0.25, 3, -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Normalize(tt.taps)
			require.NoError(t, err)
			require.Len(t, tmpl, len(tt.taps))

			assert.InDelta(t, 1.0, tmpl.Positive(), 1e-9)
			assert.InDelta(t, -1.0, tmpl.Negative(), 1e-9)
		})
	}
}

func TestNormalizeKeepsSigns(t *testing.T) {
	taps := []float64{-2, -1, 0, 1, 2, 2, 1, 0, -1, -2}
	tmpl, err := Normalize(taps)
	require.NoError(t, err)

	for i := range taps {
		switch {
		case taps[i] > 0:
			assert.Greater(t, tmpl[i], 0.0)
		case taps[i] < 0:
			assert.Less(t, tmpl[i], 0.0)
		default:
			assert.Zero(t, tmpl[i])
		}
	}
	assert.InDelta(t, 2.0/6.0, tmpl[4], 1e-12)
	assert.InDelta(t, -2.0/6.0, tmpl[0], 1e-12)
}

func TestNormalizeDegenerate(t *testing.T) {
	tests := []struct {
		name string
		taps []float64
	}{
		{"all positive", []float64{1, 2, 3}},
		{"all negative", []float64{-1, -2, -3}},
		{"all zero", []float64{0, 0, 0}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.taps)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDegenerateTemplate))
			assert.False(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestBuildTemplateIsDeterministic(t *testing.T) {
	for _, shape := range []Shape{ShapeRectangular, ShapeCosine} {
		first, err := BuildTemplate(shape, 41)
		require.NoError(t, err)
		second, err := BuildTemplate(shape, 41)
		require.NoError(t, err)

		assert.Equal(t, first, second, "shape %s", shape)
	}
}

func TestBuildTemplateErrors(t *testing.T) {
	_, err := BuildTemplate(Shape("triangle"), 41)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = BuildTemplate(ShapeCosine, 1)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestParseShape(t *testing.T) {
	tests := map[string]Shape{
		"rect":          ShapeRectangular,
		"Rectangular":   ShapeRectangular,
		"cos":           ShapeCosine,
		"raised-cosine": ShapeCosine,
	}
	for in, want := range tests {
		got, err := ParseShape(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseShape("gauss")
	assert.ErrorIs(t, err, ErrConfiguration)
}
