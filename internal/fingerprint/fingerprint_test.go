package fingerprint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Legacy(t *testing.T) {
	fp, err := Parse([]byte(`"fp1"`))
	require.NoError(t, err)

	assert.True(t, fp.IsLegacy())
	assert.Equal(t, "fp1", fp.String())
	assert.JSONEq(t, `"fp1"`, string(fp.Raw()))
}

func TestParse_LegacyEmpty(t *testing.T) {
	for _, raw := range []string{`""`, `"   "`, ``} {
		_, err := Parse([]byte(raw))
		requireInvalidField(t, err, FieldFingerprint)
	}
}

func TestParse_RejectsOtherJSONTypes(t *testing.T) {
	for _, raw := range []string{`42`, `true`, `null`, `["fp"]`} {
		_, err := Parse([]byte(raw))
		requireInvalidField(t, err, FieldFingerprint)
	}
}

func TestParse_StructuredRunsValidator(t *testing.T) {
	m := validDescriptorMap()
	m["gradientPatterns"] = "flat"

	_, err := Parse(encode(t, m))
	requireInvalidField(t, err, FieldGradientPatterns)
}

func TestParse_StructuredCanonicalEquality(t *testing.T) {
	a, err := Parse([]byte(`{"imageHash":1,"colorDistribution":{"r":1,"g":2,"b":3},"gradientPatterns":[1],
		"edgeDetection":0,"noisePattern":0,"entropy":0,"contrast":0,"meanBrightness":0,"renderingArtifacts":false}`))
	require.NoError(t, err)

	b, err := Parse([]byte(`{"renderingArtifacts":false,"meanBrightness":0,"contrast":0,"entropy":0,"noisePattern":0,
		"edgeDetection":0,"gradientPatterns":[1],"colorDistribution":{"b":3,"g":2,"r":1},"imageHash":1}`))
	require.NoError(t, err)

	assert.True(t, a.IsStructured())
	assert.True(t, a.Equal(b))

	c, err := Parse([]byte(`{"imageHash":2,"colorDistribution":{"r":1,"g":2,"b":3},"gradientPatterns":[1],
		"edgeDetection":0,"noisePattern":0,"entropy":0,"contrast":0,"meanBrightness":0,"renderingArtifacts":false}`))
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestParse_NumberSpellingsCompareEqual(t *testing.T) {
	d := Descriptor{
		ImageHash:         3735928559,
		ColorDistribution: ColorDistribution{R: 250.5, G: 251, B: 252},
		GradientPatterns:  []float64{1e-7, 0.5},
		NoisePattern:      1e-7,
		Entropy:           2.25,
	}
	emitted, err := FromDescriptor(d)
	require.NoError(t, err)

	// jsonb output: spaces, keys by length, numbers in plain decimal.
	stored, err := Parse([]byte(`{"entropy": 2.25, "contrast": 0, "imageHash": 3735928559, ` +
		`"noisePattern": 0.0000001, "edgeDetection": 0, "meanBrightness": 0, "gradientPatterns": [0.0000001, 0.50], ` +
		`"colorDistribution": {"b": 252.0, "g": 251, "r": 250.50}, "renderingArtifacts": 0}`))
	require.NoError(t, err)

	assert.True(t, emitted.Equal(stored))
	assert.True(t, Set{stored}.Contains(emitted))
}

func TestEqual_DifferentKindsNeverEqual(t *testing.T) {
	legacy := mustLegacy(`{"imageHash":1}`)
	structured, err := FromDescriptor(Descriptor{
		ImageHash:         1,
		ColorDistribution: ColorDistribution{R: 1, G: 1, B: 1},
		GradientPatterns:  []float64{},
	})
	require.NoError(t, err)

	assert.False(t, legacy.Equal(structured))
	assert.False(t, Fingerprint{}.Equal(Fingerprint{}))
}

func TestFromDescriptor_RoundTrip(t *testing.T) {
	d := Descriptor{
		ImageHash:          4242,
		ColorDistribution:  ColorDistribution{R: 10, G: 20, B: 30},
		GradientPatterns:   []float64{0.5, 0.25},
		EdgeDetection:      0.1,
		NoisePattern:       0.2,
		Entropy:            3.3,
		Contrast:           12,
		MeanBrightness:     200,
		RenderingArtifacts: 0.01,
	}

	fp, err := FromDescriptor(d)
	require.NoError(t, err)

	got, err := fp.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, d, got)

	_, err = mustLegacy("x").Descriptor()
	assert.Error(t, err)
}

func TestSet_JSONRoundTrip(t *testing.T) {
	structured, err := FromDescriptor(Descriptor{
		ImageHash:         9,
		ColorDistribution: ColorDistribution{R: 1, G: 2, B: 3},
		GradientPatterns:  []float64{1},
	})
	require.NoError(t, err)

	set := Set{mustLegacy("fp1"), structured}
	b, err := json.Marshal(set)
	require.NoError(t, err)

	var decoded Set
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded, 2)
	assert.True(t, decoded.Contains(mustLegacy("fp1")))
	assert.True(t, decoded.Contains(structured))
	assert.Len(t, decoded.Structured(), 1)
	assert.Len(t, decoded.RawValues(), 2)
}

func mustLegacy(s string) Fingerprint {
	fp, err := Legacy(s)
	if err != nil {
		panic(err)
	}
	return fp
}
