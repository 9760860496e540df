package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Observation", "a.ndjson", "b.ndjson"))
	require.NoError(t, r.Register("Condition", "c.ndjson", "a.ndjson"))

	ds, err := r.Datasets("Observation")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ndjson", "b.ndjson"}, ds)

	ds[0] = "mutated"
	again, _ := r.Datasets("Observation")
	assert.Equal(t, "a.ndjson", again[0], "Datasets returns a copy")

	assert.Equal(t, []string{"Observation", "Condition"}, r.Types())
	assert.Equal(t, []string{"a.ndjson", "b.ndjson", "c.ndjson"}, r.AllDatasets())
	assert.Equal(t, []string{"Observation", "Condition"}, r.TypesFor("a.ndjson"))
	assert.Empty(t, r.TypesFor("z.ndjson"))
	assert.True(t, r.Has("Condition"))
	assert.False(t, r.Has("Patient"))

	_, err = r.Datasets("Patient")
	assert.ErrorIs(t, err, ErrResourceTypeNotFound)
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Patient", "p.ndjson"))

	tests := []struct {
		name     string
		typ      string
		datasets []string
		want     error
	}{
		{"duplicate", "Patient", []string{"q.ndjson"}, ErrDuplicateType},
		{"no datasets", "Encounter", nil, ErrNoDatasets},
		{"blank type", " ", []string{"x.ndjson"}, ErrInvalidRegistry},
		{"path traversal", "Encounter", []string{"../x.ndjson"}, ErrInvalidRegistry},
		{"blank dataset", "Encounter", []string{""}, ErrInvalidRegistry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.Register(tt.typ, tt.datasets...), tt.want)
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Len(t, r.Types(), 13)
	assert.Equal(t, "Patient", r.Types()[0])

	obs, err := r.Datasets("Observation")
	require.NoError(t, err)
	assert.Len(t, obs, 9)
	assert.Equal(t, "MimicObservationLabevents.ndjson", obs[0])

	enc, _ := r.Datasets("Encounter")
	assert.Equal(t, []string{"MimicEncounter.ndjson", "MimicEncounterED.ndjson", "MimicEncounterICU.ndjson"}, enc)
}

func TestLoadRegistry(t *testing.T) {
	r, err := LoadRegistry(strings.NewReader(`
types:
  - name: Observation
    datasets: [labs.ndjson, vitals.ndjson]
  - name: Patient
    datasets:
      - patients.ndjson
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Observation", "Patient"}, r.Types())
	ds, _ := r.Datasets("Observation")
	assert.Equal(t, []string{"labs.ndjson", "vitals.ndjson"}, ds)
}

func TestLoadRegistry_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", "", ErrInvalidRegistry},
		{"no types", "types: []\n", ErrInvalidRegistry},
		{"unknown field", "types:\n  - name: X\n    files: [a.ndjson]\n", ErrInvalidRegistry},
		{"syntax", "types: [\n", ErrInvalidRegistry},
		{"missing datasets", "types:\n  - name: X\n", ErrNoDatasets},
		{"duplicate", "types:\n  - {name: X, datasets: [a]}\n  - {name: X, datasets: [b]}\n", ErrDuplicateType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
