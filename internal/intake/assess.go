package intake

import (
	"strings"

	"github.com/jamesruggles/alertavecinal/internal/risk"
	"github.com/jamesruggles/alertavecinal/internal/vision"
)

const summaryNoImage = "Image analysis: no image attached. Risk LOW."

// Assessment is the merged text and image verdict stored on a report.
type Assessment struct {
	Level      risk.Level
	HasWeapon  bool
	HasVehicle bool
	Plate      string
	Confidence float64
	Summary    string
	Outcome    vision.Outcome
}

// Merge builds the verdict stored on a report. Risk, weapon and
// confidence come from the image analysis alone: without an image, or when
// the weapon check failed, the report is low risk with no weapon. The text
// assessment contributes the vehicle flag and its summary. An OCR plate
// replaces the one typed by the user.
func Merge(text risk.TextAssessment, img *vision.Analysis, userPlate string) Assessment {
	a := Assessment{
		Level:   risk.Low,
		Plate:   strings.ToUpper(strings.TrimSpace(userPlate)),
		Outcome: vision.OutcomeSkipped,
	}

	imageSummary := summaryNoImage
	if img != nil {
		imageSummary = img.Summary
		a.Outcome = img.Outcome
		if img.WeaponOutcome != vision.OutcomeDegraded && img.Level.Valid() {
			a.Level = img.Level
			a.HasWeapon = img.HasWeapon
			a.Confidence = img.Confidence
		}
		if img.Plate != "" {
			a.Plate = img.Plate
		}
	}

	a.HasVehicle = text.HasVehicle || a.Plate != ""
	a.Summary = imageSummary + " " + text.Summary
	return a
}
