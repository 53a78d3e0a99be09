package capture

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

func testDevice() DeviceInfo {
	return DeviceInfo{
		Platform:            "Linux x86_64",
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64) TestBrowser/1.0",
		ScreenWidth:         1920,
		ScreenHeight:        1080,
		PixelRatio:          1.5,
		DeviceMemory:        8,
		ColorDepth:          24,
		HardwareConcurrency: 16,
	}
}

func TestLegacy_FormatAndStability(t *testing.T) {
	rt := NewSoftwareRuntime(testDevice())

	first, err := New(rt).Legacy()
	require.NoError(t, err)
	second, err := New(rt).Legacy()
	require.NoError(t, err)

	require.Equal(t, ResultLegacy, first.Kind)
	assert.True(t, first.Fingerprint.Equal(second.Fingerprint), "same device must yield the same signal")

	parts := strings.Split(first.Fingerprint.String(), Separator)
	require.Len(t, parts, 9)
	assert.True(t, strings.HasPrefix(parts[0], "data:image/png;base64,"))
	assert.Equal(t, []string{
		"Linux x86_64",
		"Mozilla/5.0 (X11; Linux x86_64) TestBrowser/1.0",
		"1920", "1080", "1.5", "8", "24", "16",
	}, parts[1:])
}

func TestLegacy_ChangesWithDeviceAttributes(t *testing.T) {
	base, err := New(NewSoftwareRuntime(testDevice())).Legacy()
	require.NoError(t, err)

	changed := testDevice()
	changed.ScreenWidth = 2560
	other, err := New(NewSoftwareRuntime(changed)).Legacy()
	require.NoError(t, err)

	assert.False(t, base.Fingerprint.Equal(other.Fingerprint))
}

func TestDeviceInfo_MissingValues(t *testing.T) {
	attrs := DeviceInfo{}.Attributes()
	assert.Equal(t, []string{"unknown", "unknown", "0", "0", "0", "0", "0", "0"}, attrs)
}

func TestHashedLegacy(t *testing.T) {
	c := New(NewSoftwareRuntime(testDevice()))

	plain, err := c.Legacy()
	require.NoError(t, err)
	hashed, err := c.HashedLegacy()
	require.NoError(t, err)

	assert.Equal(t, HashSignal(plain.Fingerprint.String()), hashed.Fingerprint.String())
	assert.Len(t, hashed.Fingerprint.String(), 64)
}

func TestStructured_PassesValidator(t *testing.T) {
	res, err := New(NewSoftwareRuntime(testDevice())).Structured()
	require.NoError(t, err)
	require.Equal(t, ResultStructured, res.Kind)

	require.NoError(t, fingerprint.Validate(res.Fingerprint.Raw()))

	d, err := res.Fingerprint.Descriptor()
	require.NoError(t, err)
	assert.Len(t, d.GradientPatterns, gradientSamples)
	assert.Greater(t, d.RenderingArtifacts, 0.0, "the translucent text pass leaves partially transparent pixels")
	assert.Greater(t, d.Contrast, 0.0)
	assert.Less(t, d.MeanBrightness, 255.0)
}

func TestStructured_Deterministic(t *testing.T) {
	a, err := New(NewSoftwareRuntime(testDevice())).Structured()
	require.NoError(t, err)
	b, err := New(NewSoftwareRuntime(DeviceInfo{})).Structured()
	require.NoError(t, err)

	// Device attributes do not take part in the rendering statistics.
	assert.True(t, a.Fingerprint.Equal(b.Fingerprint))
}

func TestTamper_NonNativeDefault(t *testing.T) {
	rt := NewSoftwareRuntime(testDevice())
	rt.PatchDefault(&Primitive{
		Source: "function toDataURL() { return 'spoofed' }",
		Export: func(image.Image) (string, error) { return "spoofed", nil },
	})

	assertTampered(t, rt)
}

func TestTamper_InstanceNotIdenticalToDefault(t *testing.T) {
	rt := NewSoftwareRuntime(testDevice())
	// Same source text, different function: only the identity check catches it.
	rt.PatchInstances(&Primitive{
		Source: rt.DefaultExportPrimitive().Source,
		Export: func(image.Image) (string, error) { return "spoofed", nil },
	})

	assertTampered(t, rt)
}

func TestTamper_MissingDefault(t *testing.T) {
	rt := NewSoftwareRuntime(testDevice())
	rt.PatchDefault(nil)

	assertTampered(t, rt)
}

func assertTampered(t *testing.T, rt Runtime) {
	t.Helper()

	hookCalls := 0
	c := New(rt, WithTamperHook(func() { hookCalls++ }))

	require.ErrorIs(t, c.CheckIntegrity(), ErrTampered)

	captures := []func() (Result, error){c.Legacy, c.HashedLegacy, c.Structured}
	for _, capture := range captures {
		res, err := capture()
		require.True(t, errors.Is(err, ErrTampered))
		assert.Equal(t, ResultTampered, res.Kind)
		assert.True(t, res.Fingerprint.IsZero(), "a tampered capture never carries a signal")
	}
	assert.Equal(t, len(captures), hookCalls)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b uint8
		a       uint8
		ok      bool
	}{
		{"#f60", 0xff, 0x66, 0x00, 255, true},
		{"#006699", 0x00, 0x66, 0x99, 255, true},
		{"rgba(102, 204, 0, 0.7)", 102, 204, 0, 179, true},
		{"rgb(1,2,3)", 1, 2, 3, 255, true},
		{"#12", 0, 0, 0, 0, false},
		{"rgba(1,2,3)", 0, 0, 0, 0, false},
		{"hsl(1,2,3)", 0, 0, 0, 0, false},
		{"rgb(300,2,3)", 0, 0, 0, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			c, err := parseColor(tc.in)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, [4]uint8{tc.r, tc.g, tc.b, tc.a}, [4]uint8{c.R, c.G, c.B, c.A})
		})
	}
}
