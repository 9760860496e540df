package search

import "github.com/jonwraymond/fhirstore/resource"

// Sampling limits for patient summaries. Counts stop at these values.
const (
	summaryObservationLimit = 100
	summaryEncounterLimit   = 10
	summaryConditionLimit   = 3
	conditionTextMax        = 50
)

// PatientSummary is a compact view of one patient for selection lists.
type PatientSummary struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Gender           string   `json:"gender"`
	BirthDate        string   `json:"birthDate"`
	ObservationCount int      `json:"observationCount"`
	EncounterCount   int      `json:"encounterCount"`
	ConditionCount   int      `json:"conditionCount"`
	Conditions       []string `json:"conditions"`
}

func summarize(patient resource.Resource, obs, enc, cond []resource.Resource) PatientSummary {
	id := patient.ID()

	name := patient.String("name", "[0]", "family")
	if name == "" {
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		name = "Patient_" + short
	}
	gender := patient.String("gender")
	if gender == "" {
		gender = "unknown"
	}

	conditions := make([]string, 0, len(cond))
	for _, c := range cond {
		text := c.String("code", "text")
		if text == "" {
			text = "Unknown"
		}
		if r := []rune(text); len(r) > conditionTextMax {
			text = string(r[:conditionTextMax])
		}
		conditions = append(conditions, text)
	}

	return PatientSummary{
		ID:               id,
		Name:             name,
		Gender:           gender,
		BirthDate:        patient.String("birthDate"),
		ObservationCount: len(obs),
		EncounterCount:   len(enc),
		ConditionCount:   len(cond),
		Conditions:       conditions,
	}
}
