// Package fingerprint models the device identity signal a client presents on
// every request and validates structured descriptors at the trust boundary.
//
// A fingerprint is either a legacy opaque string, compared by exact value, or
// a structured descriptor, compared by the anomaly classifier.
package fingerprint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindInvalid Kind = iota
	KindLegacy
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindStructured:
		return "structured"
	default:
		return "invalid"
	}
}

// Fingerprint is the variant value. The zero value is invalid.
type Fingerprint struct {
	kind   Kind
	legacy string
	raw    json.RawMessage // canonical JSON, structured only
}

// Legacy wraps a non-empty legacy string.
func Legacy(s string) (Fingerprint, error) {
	if strings.TrimSpace(s) == "" {
		return Fingerprint{}, &InvalidFingerprintError{Field: FieldFingerprint, Reason: "must not be empty"}
	}
	return Fingerprint{kind: KindLegacy, legacy: s}, nil
}

// FromDescriptor encodes d and runs it through the validator.
func FromDescriptor(d Descriptor) (Fingerprint, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint: encode descriptor: %w", err)
	}
	return Parse(raw)
}

// Parse classifies raw JSON. Strings are legacy fingerprints checked only for
// non-emptiness; objects must pass Validate; anything else is rejected.
func Parse(raw []byte) (Fingerprint, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Fingerprint{}, &InvalidFingerprintError{Field: FieldFingerprint, Reason: "is required"}
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Fingerprint{}, &InvalidFingerprintError{Field: FieldFingerprint, Reason: "is not a valid string"}
		}
		return Legacy(s)
	case '{':
		if err := Validate(raw); err != nil {
			return Fingerprint{}, err
		}
		canonical, err := canonicalize(raw)
		if err != nil {
			return Fingerprint{}, &InvalidFingerprintError{Field: FieldFingerprint, Reason: "is not valid JSON"}
		}
		return Fingerprint{kind: KindStructured, raw: canonical}, nil
	default:
		return Fingerprint{}, &InvalidFingerprintError{Field: FieldFingerprint, Reason: "must be a string or an object"}
	}
}

func (f Fingerprint) Kind() Kind { return f.kind }

func (f Fingerprint) IsZero() bool { return f.kind == KindInvalid }

func (f Fingerprint) IsLegacy() bool { return f.kind == KindLegacy }

func (f Fingerprint) IsStructured() bool { return f.kind == KindStructured }

// String returns the legacy value, or the canonical JSON of a descriptor.
func (f Fingerprint) String() string {
	if f.kind == KindLegacy {
		return f.legacy
	}
	return string(f.raw)
}

// Raw returns the JSON representation of the fingerprint.
func (f Fingerprint) Raw() json.RawMessage {
	b, _ := f.MarshalJSON()
	return b
}

// Descriptor decodes a structured fingerprint.
func (f Fingerprint) Descriptor() (Descriptor, error) {
	if f.kind != KindStructured {
		return Descriptor{}, errors.New("fingerprint: not a structured descriptor")
	}
	var d Descriptor
	if err := json.Unmarshal(f.raw, &d); err != nil {
		return Descriptor{}, fmt.Errorf("fingerprint: decode descriptor: %w", err)
	}
	return d, nil
}

// Equal is exact value equality: string equality for legacy values and
// canonical JSON equality for descriptors. It never measures similarity.
func (f Fingerprint) Equal(o Fingerprint) bool {
	if f.kind != o.kind {
		return false
	}
	switch f.kind {
	case KindLegacy:
		return f.legacy == o.legacy
	case KindStructured:
		return bytes.Equal(f.raw, o.raw)
	default:
		return false
	}
}

func (f Fingerprint) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case KindLegacy:
		return json.Marshal(f.legacy)
	case KindStructured:
		return append([]byte(nil), f.raw...), nil
	default:
		return []byte("null"), nil
	}
}

func (f *Fingerprint) UnmarshalJSON(b []byte) error {
	fp, err := Parse(b)
	if err != nil {
		return err
	}
	*f = fp
	return nil
}

// canonicalize re-encodes raw with sorted object keys, no whitespace and one
// spelling per number, so that 1e-7 and 0.0000001 compare equal. Stores such
// as jsonb rewrite number literals, and the encoding must survive them.
func canonicalize(raw []byte) (json.RawMessage, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
