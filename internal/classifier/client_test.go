package classifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

func descriptorFP(t *testing.T, hash float64) fingerprint.Fingerprint {
	t.Helper()
	fp, err := fingerprint.FromDescriptor(fingerprint.Descriptor{
		ImageHash:         hash,
		ColorDistribution: fingerprint.ColorDistribution{R: 10, G: 20, B: 30},
		GradientPatterns:  []float64{0.1, 0.2},
	})
	require.NoError(t, err)
	return fp
}

type model struct {
	predictStatus int
	predictBody   string
	healthStatus  int
	delay         time.Duration

	predictCalls atomic.Int32
	healthCalls  atomic.Int32
	lastRequest  atomic.Value
}

func (m *model) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/predict":
			m.predictCalls.Add(1)
			body, _ := io.ReadAll(r.Body)
			m.lastRequest.Store(body)
			if m.delay > 0 {
				select {
				case <-time.After(m.delay):
				case <-r.Context().Done():
					return
				}
			}
			w.WriteHeader(m.predictStatus)
			_, _ = io.WriteString(w, m.predictBody)
		case "/health":
			m.healthCalls.Add(1)
			w.WriteHeader(m.healthStatus)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPredict_Outcomes(t *testing.T) {
	tests := []struct {
		body string
		want Outcome
	}{
		{`{"result":"Legitimate Change","confidence":0.93}`, OutcomeLegitimateChange},
		{`{"result":"SessionStealer"}`, OutcomeSessionStealer},
		{`{"result":"Something Else"}`, OutcomeUnknown},
		{`{"confidence":0.5}`, OutcomeUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.body, func(t *testing.T) {
			m := &model{predictStatus: http.StatusOK, predictBody: tc.body, healthStatus: http.StatusOK}
			c := New(m.server(t).URL)

			v := c.Predict(context.Background(), descriptorFP(t, 1), fingerprint.Set{descriptorFP(t, 2)})
			require.False(t, v.Failed())
			assert.Equal(t, tc.want, v.Outcome)
			assert.JSONEq(t, tc.body, string(v.Raw))
			assert.EqualValues(t, 0, m.healthCalls.Load())
		})
	}
}

func TestPredict_RequestShape(t *testing.T) {
	m := &model{predictStatus: http.StatusOK, predictBody: `{"result":"SessionStealer"}`}
	c := New(m.server(t).URL + "/")

	presented := descriptorFP(t, 1)
	known := descriptorFP(t, 2)
	c.Predict(context.Background(), presented, fingerprint.Set{known})

	var sent struct {
		CurrentFingerprint struct {
			Device             string          `json:"device"`
			CanvasFingerprint  json.RawMessage `json:"canvasFingerprint"`
			AccountFingerprint json.RawMessage `json:"accountFingerprint"`
		} `json:"current_fingerprint"`
	}
	require.NoError(t, json.Unmarshal(m.lastRequest.Load().([]byte), &sent))
	assert.Equal(t, "user_current_device", sent.CurrentFingerprint.Device)
	assert.JSONEq(t, presented.String(), string(sent.CurrentFingerprint.CanvasFingerprint))
	assert.JSONEq(t, known.String(), string(sent.CurrentFingerprint.AccountFingerprint))
}

func TestPredict_SeveralKnownSentAsArray(t *testing.T) {
	m := &model{predictStatus: http.StatusOK, predictBody: `{"result":"Legitimate Change"}`}
	c := New(m.server(t).URL)

	c.Predict(context.Background(), descriptorFP(t, 1), fingerprint.Set{descriptorFP(t, 2), descriptorFP(t, 3)})

	var sent map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(m.lastRequest.Load().([]byte), &sent))
	var known []json.RawMessage
	require.NoError(t, json.Unmarshal(sent["current_fingerprint"]["accountFingerprint"], &known))
	assert.Len(t, known, 2)
}

func TestPredict_ModelErrorServiceUp(t *testing.T) {
	m := &model{
		predictStatus: http.StatusInternalServerError,
		predictBody:   `{"error":"feature extraction failed"}`,
		healthStatus:  http.StatusOK,
	}
	c := New(m.server(t).URL)

	v := c.Predict(context.Background(), descriptorFP(t, 1), fingerprint.Set{descriptorFP(t, 2)})
	require.True(t, v.Failed())
	assert.Equal(t, ClassificationError, v.Diagnostic.Kind)
	assert.Equal(t, "ML analysis failed", v.Diagnostic.Error)
	assert.Equal(t, "ML model error: 500 - feature extraction failed", v.Diagnostic.Details)
	assert.EqualValues(t, 1, m.predictCalls.Load(), "no retries")
	assert.EqualValues(t, 1, m.healthCalls.Load())
}

func TestPredict_UndecodableBody(t *testing.T) {
	m := &model{predictStatus: http.StatusOK, predictBody: `<html>`, healthStatus: http.StatusOK}
	c := New(m.server(t).URL)

	v := c.Predict(context.Background(), descriptorFP(t, 1), nil)
	require.True(t, v.Failed())
	assert.Equal(t, ClassificationError, v.Diagnostic.Kind)
	assert.Contains(t, v.Diagnostic.Details, "invalid JSON")
}

func TestPredict_HealthNotOK(t *testing.T) {
	m := &model{predictStatus: http.StatusBadGateway, predictBody: ``, healthStatus: http.StatusServiceUnavailable}
	c := New(m.server(t).URL)

	v := c.Predict(context.Background(), descriptorFP(t, 1), nil)
	require.True(t, v.Failed())
	assert.Equal(t, ServiceDown, v.Diagnostic.Kind)
	assert.Equal(t, "ML server is not responding", v.Diagnostic.Error)
	assert.Empty(t, v.Diagnostic.Solution)
}

func TestPredict_ServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	v := New(url).Predict(context.Background(), descriptorFP(t, 1), nil)
	require.True(t, v.Failed())
	assert.Equal(t, ServiceDown, v.Diagnostic.Kind)
	assert.Equal(t, "ML server is not running", v.Diagnostic.Error)
	assert.NotEmpty(t, v.Diagnostic.Details)
	assert.NotEmpty(t, v.Diagnostic.Solution)

	b, err := json.Marshal(v.MLResult())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"solution"`)
}

func TestPredict_TimeoutThenProbe(t *testing.T) {
	m := &model{
		predictStatus: http.StatusOK,
		predictBody:   `{"result":"Legitimate Change"}`,
		healthStatus:  http.StatusOK,
		delay:         time.Second,
	}
	c := New(m.server(t).URL, WithTimeout(50*time.Millisecond))

	v := c.Predict(context.Background(), descriptorFP(t, 1), nil)
	require.True(t, v.Failed())
	assert.Equal(t, ClassificationError, v.Diagnostic.Kind)
	assert.Contains(t, v.Diagnostic.Details, "did not answer in time")
	assert.EqualValues(t, 1, m.healthCalls.Load())
}

func TestPredict_CancelledCallerSkipsProbe(t *testing.T) {
	m := &model{predictStatus: http.StatusOK, predictBody: `{}`, healthStatus: http.StatusOK}
	c := New(m.server(t).URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := c.Predict(ctx, descriptorFP(t, 1), nil)
	require.True(t, v.Failed())
	assert.EqualValues(t, 0, m.healthCalls.Load())
}

func TestPredict_ClientCredentials(t *testing.T) {
	var sawAuth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"abc","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		sawAuth.Store(r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"result":"Legitimate Change"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, WithClientCredentials(srv.URL+"/token", "id", "secret"))
	v := c.Predict(context.Background(), descriptorFP(t, 1), nil)

	require.False(t, v.Failed())
	assert.Equal(t, OutcomeLegitimateChange, v.Outcome)
	assert.Equal(t, "Bearer abc", sawAuth.Load())
}

func TestPredict_SlowTokenEndpointIsBounded(t *testing.T) {
	m := &model{predictStatus: http.StatusOK, predictBody: `{"result":"Legitimate Change"}`, healthStatus: http.StatusOK}
	srv := m.server(t)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"abc","token_type":"bearer"}`)
	}))
	t.Cleanup(tokenSrv.Close)

	c := New(srv.URL,
		WithClientCredentials(tokenSrv.URL, "id", "secret"),
		WithTimeout(100*time.Millisecond),
	)

	start := time.Now()
	v := c.Predict(context.Background(), descriptorFP(t, 1), nil)

	assert.Less(t, time.Since(start), time.Second)
	require.True(t, v.Failed())
	assert.Equal(t, ServiceDown, v.Diagnostic.Kind)
	assert.EqualValues(t, 0, m.predictCalls.Load(), "no token, no prediction")
}

func TestVerdictLabel(t *testing.T) {
	assert.Equal(t, "legitimate_change", Verdict{Outcome: OutcomeLegitimateChange}.Label())
	assert.Equal(t, "service_down", Verdict{Diagnostic: &Diagnostic{Kind: ServiceDown}}.Label())
}
