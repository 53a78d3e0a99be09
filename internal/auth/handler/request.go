package handler

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

var errInvalidJSON = errors.New("handler: invalid JSON body")

type signupRequest struct {
	Email       string          `json:"email"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	Fingerprint json.RawMessage `json:"fingerprint"`
}

type loginRequest struct {
	Email       string          `json:"email"`
	Password    string          `json:"password"`
	Fingerprint json.RawMessage `json:"fingerprint"`
}

type autoAuthRequest struct {
	Fingerprint        json.RawMessage `json:"fingerprint"`
	AccountFingerprint json.RawMessage `json:"accountFingerprint"`
}

// decode reads a JSON object body. An empty body decodes as {}.
func decode(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errInvalidJSON
	}
	return nil
}

// optionalFingerprint parses a fingerprint field. Absent, null and empty
// string values yield the zero Fingerprint.
func optionalFingerprint(raw json.RawMessage) (fingerprint.Fingerprint, error) {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`:
		return fingerprint.Fingerprint{}, nil
	}
	return fingerprint.Parse(trimmed)
}
