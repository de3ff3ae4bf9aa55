package vision

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jamesruggles/alertavecinal/internal/config"
	"github.com/jamesruggles/alertavecinal/internal/risk"
)

// Observer is told about every provider call. *metrics.Metrics satisfies it.
type Observer interface {
	VisionCall(provider, outcome string)
}

// Analysis is the combined verdict for one image.
type Analysis struct {
	Outcome       Outcome
	WeaponOutcome Outcome
	PlateOutcome  Outcome
	Level         risk.Level
	HasWeapon     bool
	Confidence    float64
	Plate         string
	Summary       string
}

type Analyzer struct {
	weapons  *WeaponDetector
	plates   *PlateReader
	observer Observer
	logger   *slog.Logger
}

func NewAnalyzer(weapons *WeaponDetector, plates *PlateReader, observer Observer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{weapons: weapons, plates: plates, observer: observer, logger: logger}
}

// FromConfig wires both providers behind one client with the configured
// timeout.
func FromConfig(cfg config.VisionConfig, observer Observer, logger *slog.Logger) *Analyzer {
	client := NewClient(cfg.Timeout)
	return NewAnalyzerWithClient(client, cfg, observer, logger)
}

func NewAnalyzerWithClient(client *http.Client, cfg config.VisionConfig, observer Observer, logger *slog.Logger) *Analyzer {
	return NewAnalyzer(
		NewWeaponDetector(client, cfg.Roboflow),
		NewPlateReader(client, cfg.PlateRecognizer),
		observer,
		logger,
	)
}

// LogStatus records which providers have credentials. Keys are never logged.
func (a *Analyzer) LogStatus() {
	a.logger.Info("vision providers",
		"roboflow_key_present", a.weapons.Configured(),
		"roboflow_model", a.weapons.modelID,
		"platerecognizer_token_present", a.plates.Configured(),
		"platerecognizer_url", a.plates.url,
	)
}

// Analyze runs weapon detection and plate reading independently. It never
// returns an error: provider failures show up as degraded outcomes.
func (a *Analyzer) Analyze(ctx context.Context, image []byte) Analysis {
	w := a.weapons.Detect(ctx, image)
	a.record(ProviderRoboflow, w.Outcome, w.Err)

	p := a.plates.Read(ctx, image)
	a.record(ProviderPlateRecognizer, p.Outcome, p.Err)

	out := Analysis{
		WeaponOutcome: w.Outcome,
		PlateOutcome:  p.Outcome,
		Level:         w.Level,
		HasWeapon:     w.HasWeapon,
		Confidence:    w.Confidence,
		Plate:         p.Plate,
		Summary:       w.Summary,
	}
	if out.Plate != "" {
		out.Summary += " Plate detected: " + out.Plate + "."
	}

	switch {
	case w.Outcome == OutcomeDegraded || p.Outcome == OutcomeDegraded:
		out.Outcome = OutcomeDegraded
	case w.Outcome == OutcomeOK || p.Outcome == OutcomeOK:
		out.Outcome = OutcomeOK
	default:
		out.Outcome = OutcomeSkipped
	}
	return out
}

func (a *Analyzer) record(provider string, outcome Outcome, err error) {
	if a.observer != nil {
		a.observer.VisionCall(provider, string(outcome))
	}
	switch outcome {
	case OutcomeDegraded:
		a.logger.Warn("vision call degraded", "provider", provider, "error", err)
	case OutcomeSkipped:
		a.logger.Debug("vision call skipped", "provider", provider)
	default:
		a.logger.Debug("vision call ok", "provider", provider)
	}
}
