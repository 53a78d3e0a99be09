// Package capture produces the device identity signal and refuses to produce
// one when the export primitive has been instrumented.
package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

// ErrTampered means the capture primitives were instrumented. The caller must
// discard the signal and deauthenticate.
var ErrTampered = errors.New("capture: canvas export primitive tampered")

// Separator joins the canvas encoding and the device attributes.
const Separator = "::"

// Canvas size and drawing script. They must never change: any change alters
// every enrolled legacy fingerprint.
const (
	CanvasWidth  = 300
	CanvasHeight = 150

	scriptText = "Vengadesh"
	scriptFont = "14px 'Arial'"
)

type ResultKind int

const (
	ResultTampered ResultKind = iota + 1
	ResultLegacy
	ResultStructured
)

func (k ResultKind) String() string {
	switch k {
	case ResultTampered:
		return "tampered"
	case ResultLegacy:
		return "legacy"
	case ResultStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Result holds exactly one outcome. Fingerprint is the zero value when Kind
// is ResultTampered.
type Result struct {
	Kind        ResultKind
	Fingerprint fingerprint.Fingerprint
}

type Option func(*Capturer)

// WithTamperHook registers the deauthentication step run on a tampered
// capture.
func WithTamperHook(fn func()) Option {
	return func(c *Capturer) { c.onTamper = fn }
}

type Capturer struct {
	runtime  Runtime
	onTamper func()
}

func New(rt Runtime, opts ...Option) *Capturer {
	c := &Capturer{runtime: rt}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckIntegrity verifies the default export primitive still reports native
// source and that a fresh surface reaches that same primitive.
func (c *Capturer) CheckIntegrity() error {
	return c.checkSurface(c.runtime.NewSurface(CanvasWidth, CanvasHeight))
}

func (c *Capturer) checkSurface(s Surface) error {
	def := c.runtime.DefaultExportPrimitive()
	if def == nil || !strings.Contains(def.Source, NativeMarker) {
		return ErrTampered
	}
	if s.ExportPrimitive() != def {
		return ErrTampered
	}
	return nil
}

// Legacy captures the opaque string signal.
func (c *Capturer) Legacy() (Result, error) {
	surface, err := c.render()
	if err != nil {
		return c.fail(err)
	}

	encoding, err := surface.ExportPrimitive().Export(surface.Image())
	if err != nil {
		return Result{}, fmt.Errorf("capture: export canvas: %w", err)
	}

	signal := encoding + Separator + strings.Join(c.runtime.Device().Attributes(), Separator)
	fp, err := fingerprint.Legacy(signal)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: ResultLegacy, Fingerprint: fp}, nil
}

// HashedLegacy captures the legacy signal and replaces it with its hex
// SHA-256, the form browser clients submit.
func (c *Capturer) HashedLegacy() (Result, error) {
	res, err := c.Legacy()
	if err != nil {
		return res, err
	}
	fp, err := fingerprint.Legacy(HashSignal(res.Fingerprint.String()))
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: ResultLegacy, Fingerprint: fp}, nil
}

// Structured captures the statistical descriptor of the same rendering.
func (c *Capturer) Structured() (Result, error) {
	surface, err := c.render()
	if err != nil {
		return c.fail(err)
	}

	fp, err := fingerprint.FromDescriptor(Describe(surface.Image()))
	if err != nil {
		return Result{}, fmt.Errorf("capture: describe canvas: %w", err)
	}
	return Result{Kind: ResultStructured, Fingerprint: fp}, nil
}

// HashSignal is the hex SHA-256 of a legacy signal.
func HashSignal(signal string) string {
	sum := sha256.Sum256([]byte(signal))
	return hex.EncodeToString(sum[:])
}

func (c *Capturer) render() (Surface, error) {
	s := c.runtime.NewSurface(CanvasWidth, CanvasHeight)
	if err := c.checkSurface(s); err != nil {
		return nil, err
	}

	s.SetTextBaseline("top")
	s.SetFont(scriptFont)
	s.SetTextBaseline("alphabetic")
	if err := s.SetFillStyle("#f60"); err != nil {
		return nil, err
	}
	s.FillRect(125, 1, 62, 20)
	if err := s.SetFillStyle("#069"); err != nil {
		return nil, err
	}
	s.FillText(scriptText, 2, 15)
	if err := s.SetFillStyle("rgba(102, 204, 0, 0.7)"); err != nil {
		return nil, err
	}
	s.FillText(scriptText, 4, 17)

	return s, nil
}

func (c *Capturer) fail(err error) (Result, error) {
	if !errors.Is(err, ErrTampered) {
		return Result{}, err
	}
	if c.onTamper != nil {
		c.onTamper()
	}
	return Result{Kind: ResultTampered}, err
}
