// Package classifier calls the anomaly model that judges whether a changed
// structured fingerprint still belongs to the same device.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

const (
	DefaultTimeout = 5 * time.Second

	// device is the fixed device label the model expects.
	device = "user_current_device"

	maxResponseBytes = 1 << 20
)

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	creds   *clientcredentials.Config
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout bounds each of the predict and health round trips.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithClientCredentials authenticates every call with an OAuth2
// client-credentials token from tokenURL.
func WithClientCredentials(tokenURL, clientID, clientSecret string) Option {
	return func(cl *Client) {
		cl.creds = &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
	}
}

// New returns a client for the model served at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.creds != nil {
		c.http = c.authenticated()
	}
	return c
}

// authenticated wraps the transport with a token source. Token fetches run
// outside the request context, so the token client carries the per-call
// timeout itself.
func (c *Client) authenticated() *http.Client {
	tokenClient := &http.Client{
		Transport: c.http.Transport,
		Timeout:   c.timeout,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)
	return c.creds.Client(ctx)
}

type predictRequest struct {
	CurrentFingerprint currentFingerprint `json:"current_fingerprint"`
}

type currentFingerprint struct {
	Device             string          `json:"device"`
	CanvasFingerprint  json.RawMessage `json:"canvasFingerprint"`
	AccountFingerprint json.RawMessage `json:"accountFingerprint"`
}

type predictResponse struct {
	Result  *string `json:"result"`
	Error   string  `json:"error"`
	Details string  `json:"details"`
}

// Predict asks the model whether presented is a legitimate change from
// known. A single known value is sent as-is, several as an array. Predict
// never fails: transport and model errors come back as a Diagnostic.
func (c *Client) Predict(ctx context.Context, presented fingerprint.Fingerprint, known fingerprint.Set) Verdict {
	body, err := encodeRequest(presented, known)
	if err != nil {
		return Verdict{Diagnostic: analysisFailed(err)}
	}

	raw, resp, err := c.predict(ctx, body)
	if err == nil {
		return Verdict{Outcome: outcomeFor(*resp.Result), Raw: raw}
	}
	return Verdict{Diagnostic: c.diagnose(ctx, err)}
}

func encodeRequest(presented fingerprint.Fingerprint, known fingerprint.Set) ([]byte, error) {
	var account json.RawMessage
	switch len(known) {
	case 0:
		account = json.RawMessage("null")
	case 1:
		account = known[0].Raw()
	default:
		b, err := json.Marshal(known)
		if err != nil {
			return nil, err
		}
		account = b
	}

	return json.Marshal(predictRequest{CurrentFingerprint: currentFingerprint{
		Device:             device,
		CanvasFingerprint:  presented.Raw(),
		AccountFingerprint: account,
	}})
}

func (c *Client) predict(ctx context.Context, body []byte) (json.RawMessage, *predictResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	// read once, whatever the status
	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, err
	}

	var parsed predictResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		reason := http.StatusText(res.StatusCode)
		if decodeErr == nil && parsed.Error != "" {
			reason = parsed.Error
		} else if decodeErr == nil && parsed.Details != "" {
			reason = parsed.Details
		}
		return nil, nil, fmt.Errorf("ML model error: %d - %s", res.StatusCode, reason)
	}
	if decodeErr != nil {
		return nil, nil, fmt.Errorf("ML model returned invalid JSON: %w", decodeErr)
	}
	if parsed.Result == nil {
		empty := ""
		parsed.Result = &empty
	}
	return raw, &parsed, nil
}

// diagnose runs the single health probe that tells a dead service from a
// failed prediction.
func (c *Client) diagnose(ctx context.Context, cause error) *Diagnostic {
	if ctx.Err() != nil {
		return analysisFailed(cause)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return analysisFailed(cause)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &Diagnostic{
			Kind:     ServiceDown,
			Error:    "ML server is not running",
			Details:  "Start the ML server at " + c.baseURL,
			Solution: "Run the ML server and point CLASSIFIER_URL at it",
		}
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &Diagnostic{
			Kind:    ServiceDown,
			Error:   "ML server is not responding",
			Details: "Make sure the ML server is running at " + c.baseURL,
		}
	}
	return analysisFailed(cause)
}

func analysisFailed(cause error) *Diagnostic {
	details := cause.Error()
	if errors.Is(cause, context.DeadlineExceeded) {
		details = "ML model did not answer in time: " + details
	}
	return &Diagnostic{
		Kind:    ClassificationError,
		Error:   "ML analysis failed",
		Details: details,
	}
}
