package vision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesruggles/alertavecinal/internal/config"
	"github.com/jamesruggles/alertavecinal/internal/metrics"
	"github.com/jamesruggles/alertavecinal/internal/risk"
)

const (
	roboflowURL = "https://detect.example.test/gun-model/3"
	plateURL    = "https://plates.example.test/v1/plate-reader/"
)

var testImage = []byte("\xff\xd8\xff fake jpeg")

func testConfig() config.VisionConfig {
	return config.VisionConfig{
		Timeout: time.Second,
		Roboflow: config.RoboflowConfig{
			APIKey:  "rf-secret",
			ModelID: "gun-model/3",
			URL:     "https://detect.example.test/",
		},
		PlateRecognizer: config.PlateRecognizerConfig{
			Token: "pr-secret",
			URL:   plateURL,
		},
	}
}

func newMockClient(t *testing.T) (*http.Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	return &http.Client{Transport: mt, Timeout: time.Second}, mt
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingObserver struct {
	mu    sync.Mutex
	calls map[string]string
}

func (r *recordingObserver) VisionCall(provider, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]string{}
	}
	r.calls[provider] = outcome
}

func TestAssessPredictions(t *testing.T) {
	tests := []struct {
		name       string
		preds      []Prediction
		wantLevel  risk.Level
		wantWeapon bool
		wantConf   float64
		wantSum    string
	}{
		{"no predictions", nil, risk.Low, false, 0, summaryNoDetections},
		{"no weapon class", []Prediction{{Class: "person", Confidence: 0.99}}, risk.Low, false, 0, summaryNoWeapon},
		{"high", []Prediction{{Class: "Handgun", Confidence: 0.91}}, risk.High, true, 0.91, summaryWeaponHigh},
		{"exactly 0.8", []Prediction{{Class: "gun", Confidence: 0.8}}, risk.High, true, 0.8, summaryWeaponHigh},
		{"medium", []Prediction{{Class: "pistol", Confidence: 0.6}}, risk.Medium, true, 0.6, summaryWeaponMedium},
		{"exactly 0.5", []Prediction{{Class: "revolver", Confidence: 0.5}}, risk.Medium, true, 0.5, summaryWeaponMedium},
		{"weak weapon", []Prediction{{Class: "gun", Confidence: 0.3}}, risk.Low, true, 0.3, summaryWeaponLow},
		{
			"max across weapons only",
			[]Prediction{{Class: "person", Confidence: 0.99}, {Class: "gun", Confidence: 0.55}, {Class: "pistol", Confidence: 0.85}},
			risk.High, true, 0.85, summaryWeaponHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessPredictions(tt.preds)
			assert.Equal(t, OutcomeOK, got.Outcome)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantWeapon, got.HasWeapon)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantSum, got.Summary)
		})
	}
}

func TestBestPlate(t *testing.T) {
	plate, score := BestPlate([]PlateCandidate{{Plate: "abc123", Score: 0.7}, {Plate: "ad456fg", Score: 0.92}})
	assert.Equal(t, "AD456FG", plate)
	assert.InDelta(t, 0.92, score, 1e-9)

	plate, _ = BestPlate(nil)
	assert.Empty(t, plate)
}

func TestWeaponDetector_Detect(t *testing.T) {
	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodPost, roboflowURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "rf-secret", req.URL.Query().Get("api_key"))
		assert.Equal(t, "json", req.URL.Query().Get("format"))
		require.NoError(t, req.ParseMultipartForm(1<<20))
		files := req.MultipartForm.File["file"]
		require.Len(t, files, 1)
		return httpmock.NewStringResponse(http.StatusOK,
			`{"predictions":[{"class":"handgun","confidence":0.87}]}`), nil
	})

	d := NewWeaponDetector(client, testConfig().Roboflow)
	got := d.Detect(context.Background(), testImage)

	assert.Equal(t, OutcomeOK, got.Outcome)
	assert.Equal(t, risk.High, got.Level)
	assert.True(t, got.HasWeapon)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestWeaponDetector_Failures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"server error", httpmock.NewStringResponder(http.StatusInternalServerError, "boom")},
		{"unauthorized", httpmock.NewStringResponder(http.StatusUnauthorized, `{"message":"bad key"}`)},
		{"bad json", httpmock.NewStringResponder(http.StatusOK, `not json`)},
		{"transport error", httpmock.NewErrorResponder(errors.New("connection reset"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mt := newMockClient(t)
			mt.RegisterResponder(http.MethodPost, roboflowURL, tt.responder)

			got := NewWeaponDetector(client, testConfig().Roboflow).Detect(context.Background(), testImage)

			assert.Equal(t, OutcomeDegraded, got.Outcome)
			assert.Equal(t, risk.Low, got.Level)
			assert.False(t, got.HasWeapon)
			assert.Equal(t, summaryUnavailable, got.Summary)
			require.Error(t, got.Err)
			assert.NotContains(t, got.Err.Error(), "rf-secret")
		})
	}
}

func TestWeaponDetector_NotConfigured(t *testing.T) {
	client, mt := newMockClient(t)
	cfg := testConfig().Roboflow
	cfg.APIKey = ""

	got := NewWeaponDetector(client, cfg).Detect(context.Background(), testImage)
	assert.Equal(t, OutcomeSkipped, got.Outcome)
	assert.Equal(t, risk.Low, got.Level)
	assert.Zero(t, mt.GetTotalCallCount())
}

func TestPlateReader_Read(t *testing.T) {
	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodPost, plateURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Token pr-secret", req.Header.Get("Authorization"))
		require.NoError(t, req.ParseMultipartForm(1<<20))
		require.Len(t, req.MultipartForm.File["upload"], 1)
		return httpmock.NewStringResponse(http.StatusCreated,
			`{"results":[{"plate":"abc123","score":0.71},{"plate":"ab123cd","score":0.95}]}`), nil
	})

	got := NewPlateReader(client, testConfig().PlateRecognizer).Read(context.Background(), testImage)
	assert.Equal(t, OutcomeOK, got.Outcome)
	assert.Equal(t, "AB123CD", got.Plate)
}

func TestPlateReader_NoResultsAndFailure(t *testing.T) {
	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodPost, plateURL, httpmock.NewStringResponder(http.StatusOK, `{"results":[]}`))

	got := NewPlateReader(client, testConfig().PlateRecognizer).Read(context.Background(), testImage)
	assert.Equal(t, OutcomeOK, got.Outcome)
	assert.Empty(t, got.Plate)

	client, mt = newMockClient(t)
	mt.RegisterResponder(http.MethodPost, plateURL, httpmock.NewStringResponder(http.StatusForbidden, ""))
	got = NewPlateReader(client, testConfig().PlateRecognizer).Read(context.Background(), testImage)
	assert.Equal(t, OutcomeDegraded, got.Outcome)
	assert.Empty(t, got.Plate)
	assert.Error(t, got.Err)
}

func TestAnalyzer_Combined(t *testing.T) {
	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodPost, roboflowURL,
		httpmock.NewStringResponder(http.StatusOK, `{"predictions":[{"class":"pistol","confidence":0.62}]}`))
	mt.RegisterResponder(http.MethodPost, plateURL,
		httpmock.NewStringResponder(http.StatusOK, `{"results":[{"plate":"xyz987","score":0.9}]}`))

	obs := &recordingObserver{}
	a := NewAnalyzerWithClient(client, testConfig(), obs, quietLogger())
	got := a.Analyze(context.Background(), testImage)

	assert.Equal(t, OutcomeOK, got.Outcome)
	assert.Equal(t, risk.Medium, got.Level)
	assert.True(t, got.HasWeapon)
	assert.Equal(t, "XYZ987", got.Plate)
	assert.Equal(t, summaryWeaponMedium+" Plate detected: XYZ987.", got.Summary)
	assert.Equal(t, map[string]string{ProviderRoboflow: "ok", ProviderPlateRecognizer: "ok"}, obs.calls)
}

func TestAnalyzer_ProviderOutageIsNeutral(t *testing.T) {
	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodPost, roboflowURL, httpmock.NewErrorResponder(errors.New("dial tcp: timeout")))
	mt.RegisterResponder(http.MethodPost, plateURL, httpmock.NewStringResponder(http.StatusBadGateway, ""))

	obs := &recordingObserver{}
	got := NewAnalyzerWithClient(client, testConfig(), obs, quietLogger()).Analyze(context.Background(), testImage)

	assert.Equal(t, OutcomeDegraded, got.Outcome)
	assert.Equal(t, risk.Low, got.Level)
	assert.False(t, got.HasWeapon)
	assert.Empty(t, got.Plate)
	assert.Equal(t, summaryUnavailable, got.Summary)
	assert.Equal(t, "degraded", obs.calls[ProviderRoboflow])
	assert.Equal(t, "degraded", obs.calls[ProviderPlateRecognizer])
}

func TestAnalyzer_NothingConfigured(t *testing.T) {
	client, mt := newMockClient(t)
	got := NewAnalyzerWithClient(client, config.VisionConfig{}, nil, quietLogger()).Analyze(context.Background(), testImage)

	assert.Equal(t, OutcomeSkipped, got.Outcome)
	assert.Equal(t, risk.Low, got.Level)
	assert.Zero(t, mt.GetTotalCallCount())
}

func TestAnalyzer_NilMetricsObserver(t *testing.T) {
	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodPost, roboflowURL, httpmock.NewStringResponder(http.StatusOK, `{"predictions":[]}`))
	mt.RegisterResponder(http.MethodPost, plateURL, httpmock.NewStringResponder(http.StatusOK, `{"results":[]}`))

	var m *metrics.Metrics
	a := NewAnalyzerWithClient(client, testConfig(), m, quietLogger())

	var got Analysis
	require.NotPanics(t, func() { got = a.Analyze(context.Background(), testImage) })
	assert.Equal(t, OutcomeOK, got.Outcome)
	assert.Equal(t, 2, mt.GetTotalCallCount())
}
