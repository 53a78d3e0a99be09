package fingerprint

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidFingerprint is wrapped by every validation failure.
var ErrInvalidFingerprint = errors.New("invalid fingerprint")

const (
	FieldFingerprint        = "fingerprint"
	FieldImageHash          = "imageHash"
	FieldColorDistribution  = "colorDistribution"
	FieldGradientPatterns   = "gradientPatterns"
	FieldEdgeDetection      = "edgeDetection"
	FieldNoisePattern       = "noisePattern"
	FieldEntropy            = "entropy"
	FieldContrast           = "contrast"
	FieldMeanBrightness     = "meanBrightness"
	FieldRenderingArtifacts = "renderingArtifacts"
)

// RequiredFields is the canonical order in which presence is checked.
var RequiredFields = []string{
	FieldImageHash,
	FieldColorDistribution,
	FieldGradientPatterns,
	FieldEdgeDetection,
	FieldNoisePattern,
	FieldEntropy,
	FieldContrast,
	FieldMeanBrightness,
	FieldRenderingArtifacts,
}

// ExpectedShape is the hint returned to clients that send a bad descriptor.
const ExpectedShape = "Canvas fingerprint object with imageHash, colorDistribution, etc."

// InvalidFingerprintError names the first field that failed validation.
type InvalidFingerprintError struct {
	Field  string
	Reason string
}

func (e *InvalidFingerprintError) Error() string {
	return fmt.Sprintf("invalid fingerprint: %s %s", e.Field, e.Reason)
}

func (e *InvalidFingerprintError) Unwrap() error { return ErrInvalidFingerprint }

// Validate checks a structured descriptor payload and stops at the first
// failure: object shape, presence of every required field in canonical order,
// then the types of imageHash, colorDistribution and gradientPatterns.
func Validate(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return &InvalidFingerprintError{Field: FieldFingerprint, Reason: "is not valid JSON"}
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return &InvalidFingerprintError{Field: FieldFingerprint, Reason: "must be an object"}
	}

	fields := doc.Map()
	for _, name := range RequiredFields {
		if _, ok := fields[name]; !ok {
			return &InvalidFingerprintError{Field: name, Reason: "is required"}
		}
	}

	if fields[FieldImageHash].Type != gjson.Number {
		return &InvalidFingerprintError{Field: FieldImageHash, Reason: "must be a number"}
	}

	colors := fields[FieldColorDistribution]
	if !colors.IsObject() {
		return &InvalidFingerprintError{Field: FieldColorDistribution, Reason: "must be an object with r, g, b properties"}
	}
	channels := colors.Map()
	for _, ch := range []string{"r", "g", "b"} {
		v, ok := channels[ch]
		if !ok || !truthy(v) {
			return &InvalidFingerprintError{Field: FieldColorDistribution, Reason: "must be an object with r, g, b properties"}
		}
	}

	if !fields[FieldGradientPatterns].IsArray() {
		return &InvalidFingerprintError{Field: FieldGradientPatterns, Reason: "must be an array"}
	}

	return nil
}

// truthy follows the loose truthiness the browser client relies on: false,
// null, zero and the empty string are falsy, everything else is truthy.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	default:
		return true
	}
}
