package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jamesruggles/alertavecinal/internal/config"
)

type PlateCandidate struct {
	Plate string  `json:"plate"`
	Score float64 `json:"score"`
}

type PlateResult struct {
	Outcome Outcome
	Plate   string // upper-cased, empty when none was read
	Score   float64
	Err     error
}

// BestPlate picks the highest scoring candidate.
func BestPlate(results []PlateCandidate) (string, float64) {
	if len(results) == 0 {
		return "", 0
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	return strings.ToUpper(strings.TrimSpace(best.Plate)), best.Score
}

// PlateReader calls the Plate Recognizer snapshot API.
type PlateReader struct {
	client *http.Client
	url    string
	token  string
}

func NewPlateReader(client *http.Client, cfg config.PlateRecognizerConfig) *PlateReader {
	return &PlateReader{client: client, url: cfg.URL, token: cfg.Token}
}

func (p *PlateReader) Configured() bool {
	return p != nil && p.token != "" && p.url != ""
}

func (p *PlateReader) Read(ctx context.Context, image []byte) PlateResult {
	if !p.Configured() {
		return PlateResult{Outcome: OutcomeSkipped}
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+p.token)

	body, _, err := postImage(ctx, p.client, p.url, "upload", header, image)
	if err != nil {
		return PlateResult{Outcome: OutcomeDegraded, Err: fmt.Errorf("plate recognizer: %w", err)}
	}

	var payload struct {
		Results []PlateCandidate `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return PlateResult{Outcome: OutcomeDegraded, Err: fmt.Errorf("plate recognizer: decode response: %w", err)}
	}

	plate, score := BestPlate(payload.Results)
	return PlateResult{Outcome: OutcomeOK, Plate: plate, Score: score}
}
