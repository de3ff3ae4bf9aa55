package risk

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Keyword roots, matched by substring so that "robaron" and "robó" both hit.
var (
	weaponKeywords = []string{
		"arma", "pistola", "revolver", "revolv", "cuchill", "tiro", "dispar",
		"fusil", "escopet",
	}
	vehicleKeywords = []string{
		"auto", "moto", "camionet", "vehicul", "coche", "taxi", "remis",
		"camion", "furgon", "pick up", "pickup",
	}
	kidnapKeywords = []string{
		"secuest", "rapt", "privacion de la libertad", "levantar", "levantaron",
	}
	robberyKeywords = []string{
		"robo", "robar", "robaron", "rob", "afano", "choreo", "chorro",
		"asalto", "asalt", "hurto", "arrebato",
	}
	violenceKeywords = []string{
		"violenc", "golpe", "golp", "pelea", "agres", "discut", "ataque",
	}
)

const (
	summaryHigh   = "Text suggests a possible HIGH risk situation (weapon/kidnapping/armed robbery)."
	summaryMedium = "Text describes a relevant incident, MEDIUM risk (robbery/violence without a clear weapon)."
	summaryLow    = "Text shows no clear indicators of serious violence (LOW risk)."
)

// Fixed confidences per level.
const (
	ConfidenceHigh   = 0.8
	ConfidenceMedium = 0.65
	ConfidenceLow    = 0.45
)

// TextAssessment is the outcome of ClassifyText.
type TextAssessment struct {
	Level      Level   `json:"risk_level"`
	HasWeapon  bool    `json:"has_weapon"`
	HasVehicle bool    `json:"has_vehicle"`
	Kidnap     bool    `json:"mentions_kidnap"`
	Robbery    bool    `json:"mentions_robbery"`
	Violence   bool    `json:"mentions_violence"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// Normalize lower-cases s and removes diacritics: "Robó con PISTOLA" becomes
// "robo con pistola".
func Normalize(s string) string {
	// transform chains carry state, so one is built per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// ClassifyText scores a free-text description against the keyword table.
// An empty description is low risk.
func ClassifyText(description string) TextAssessment {
	text := Normalize(description)

	a := TextAssessment{
		HasWeapon:  containsAny(text, weaponKeywords),
		HasVehicle: containsAny(text, vehicleKeywords),
		Kidnap:     containsAny(text, kidnapKeywords),
		Robbery:    containsAny(text, robberyKeywords),
		Violence:   containsAny(text, violenceKeywords),
	}

	switch {
	case a.HasWeapon && a.HasVehicle:
		a.Level = High
	case a.HasWeapon && (a.Robbery || a.Violence || a.Kidnap):
		a.Level = High
	case a.Kidnap:
		a.Level = High
	case a.Robbery || a.Violence:
		a.Level = Medium
	default:
		a.Level = Low
	}

	switch a.Level {
	case High:
		a.Summary, a.Confidence = summaryHigh, ConfidenceHigh
	case Medium:
		a.Summary, a.Confidence = summaryMedium, ConfidenceMedium
	default:
		a.Summary, a.Confidence = summaryLow, ConfidenceLow
	}
	return a
}
