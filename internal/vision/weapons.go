package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jamesruggles/alertavecinal/internal/config"
	"github.com/jamesruggles/alertavecinal/internal/risk"
)

// Classes reported by the hosted model that count as a firearm.
var weaponClasses = map[string]bool{
	"handgun":  true,
	"gun":      true,
	"pistol":   true,
	"revolver": true,
}

const (
	summaryNoDetections = "Image analysis: no weapons detected. Risk LOW."
	summaryNoWeapon     = "Image analysis: objects detected but no clear weapon. Risk LOW."
	summaryWeaponHigh   = "Image analysis: at least one firearm detected with high confidence. Risk HIGH."
	summaryWeaponMedium = "Image analysis: possible firearm detected with medium confidence. Risk MEDIUM."
	summaryWeaponLow    = "Image analysis: unclear detections, treated as risk LOW."
	summaryUnavailable  = "Image analysis: the evidence could not be processed. Risk LOW."
	summaryNotEnabled   = "Image analysis: weapon detection is not configured. Risk LOW."
)

type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

type WeaponResult struct {
	Outcome    Outcome
	Level      risk.Level
	HasWeapon  bool
	Confidence float64 // highest weapon-class confidence
	Summary    string
	Err        error
}

// AssessPredictions buckets the strongest weapon detection: >= 0.8 high,
// >= 0.5 medium, anything else low.
func AssessPredictions(preds []Prediction) WeaponResult {
	res := WeaponResult{Outcome: OutcomeOK, Level: risk.Low}
	if len(preds) == 0 {
		res.Summary = summaryNoDetections
		return res
	}

	for _, p := range preds {
		if !weaponClasses[strings.ToLower(p.Class)] {
			continue
		}
		res.HasWeapon = true
		if p.Confidence > res.Confidence {
			res.Confidence = p.Confidence
		}
	}

	switch {
	case !res.HasWeapon:
		res.Summary = summaryNoWeapon
	case res.Confidence >= 0.8:
		res.Level = risk.High
		res.Summary = summaryWeaponHigh
	case res.Confidence >= 0.5:
		res.Level = risk.Medium
		res.Summary = summaryWeaponMedium
	default:
		res.Summary = summaryWeaponLow
	}
	return res
}

// WeaponDetector calls a Roboflow hosted detection model.
type WeaponDetector struct {
	client  *http.Client
	baseURL string
	modelID string
	apiKey  string
}

func NewWeaponDetector(client *http.Client, cfg config.RoboflowConfig) *WeaponDetector {
	return &WeaponDetector{
		client:  client,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		modelID: strings.Trim(cfg.ModelID, "/"),
		apiKey:  cfg.APIKey,
	}
}

func (d *WeaponDetector) Configured() bool {
	return d != nil && d.apiKey != "" && d.modelID != ""
}

func (d *WeaponDetector) endpoint() string {
	q := url.Values{}
	q.Set("api_key", d.apiKey)
	q.Set("format", "json")
	return d.baseURL + "/" + d.modelID + "?" + q.Encode()
}

// Detect never fails; see the package documentation.
func (d *WeaponDetector) Detect(ctx context.Context, image []byte) WeaponResult {
	if !d.Configured() {
		return WeaponResult{Outcome: OutcomeSkipped, Level: risk.Low, Summary: summaryNotEnabled}
	}

	body, _, err := postImage(ctx, d.client, d.endpoint(), "file", nil, image)
	if err != nil {
		return degradedWeapon(fmt.Errorf("roboflow: %w", err))
	}

	var payload struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return degradedWeapon(fmt.Errorf("roboflow: decode response: %w", err))
	}
	return AssessPredictions(payload.Predictions)
}

func degradedWeapon(err error) WeaponResult {
	if err == nil {
		err = errors.New("roboflow: unknown failure")
	}
	return WeaponResult{Outcome: OutcomeDegraded, Level: risk.Low, Summary: summaryUnavailable, Err: err}
}
