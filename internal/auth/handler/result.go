package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/auth"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/config"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

// Result is what every endpoint produces. render is the only code that
// writes it to the wire.
type Result struct {
	Status  int
	Header  http.Header
	Cookies []*http.Cookie
	Body    any
}

func jsonOK(body any) Result {
	return Result{Status: http.StatusOK, Body: body}
}

func failure(status int, msg string) Result {
	return Result{Status: status, Body: gin.H{"error": msg}}
}

func render(c *gin.Context, r Result) {
	for k, vs := range r.Header {
		for _, v := range vs {
			c.Writer.Header().Add(k, v)
		}
	}
	for _, ck := range r.Cookies {
		http.SetCookie(c.Writer, ck)
	}
	if r.Body == nil {
		c.Status(r.Status)
		return
	}
	c.JSON(r.Status, r.Body)
}

var errorStatus = []struct {
	err    error
	status int
	msg    string
}{
	{errInvalidJSON, http.StatusBadRequest, "Invalid JSON in request body"},
	{auth.ErrMissingFields, http.StatusBadRequest, "All fields are required"},
	{auth.ErrMissingCredentials, http.StatusBadRequest, "Email and password are required"},
	{auth.ErrMissingFingerprint, http.StatusBadRequest, "Fingerprint is required"},
	{auth.ErrAccountExists, http.StatusBadRequest, "User already exists"},
	{auth.ErrInvalidSession, http.StatusUnauthorized, "Invalid session"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{auth.ErrFingerprintMismatch, http.StatusUnauthorized, "Fingerprint mismatch"},
	{auth.ErrNoFingerprints, http.StatusNotFound, "No fingerprints found"},
	{config.ErrConfig, http.StatusInternalServerError, "Server configuration error"},
}

// errorResult maps a flow error to its response. Unknown errors become a
// bare 500; their text never reaches the client.
func errorResult(err error) Result {
	var invalid *fingerprint.InvalidFingerprintError
	if errors.As(err, &invalid) {
		return Result{Status: http.StatusBadRequest, Body: gin.H{
			"error":    "Invalid canvas fingerprint format",
			"field":    invalid.Field,
			"details":  invalid.Error(),
			"expected": fingerprint.ExpectedShape,
		}}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return failure(http.StatusRequestEntityTooLarge, "Request body too large")
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return failure(e.status, e.msg)
		}
	}
	return failure(http.StatusInternalServerError, "Internal server error")
}

// readBody buffers the whole request body, bounded by limit.
func readBody(c *gin.Context, limit int64) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	return io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
}

// NotFound answers routes that do not exist.
func NotFound(c *gin.Context) {
	render(c, failure(http.StatusNotFound, "Endpoint not found"))
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(c *gin.Context) {
	render(c, failure(http.StatusMethodNotAllowed, "Method not allowed"))
}
