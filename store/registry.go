package store

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry maps resource types to their ordered dataset files.
//
// Types keep registration order. Datasets are file names relative to the
// store's data directory and are read in the order given. Opening a store
// freezes the registry so both store modes see the same type set.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	datasets map[string][]string
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{datasets: make(map[string][]string)}
}

// Register binds resourceType to one or more dataset files.
func (r *Registry) Register(resourceType string, datasets ...string) error {
	resourceType = strings.TrimSpace(resourceType)
	if resourceType == "" {
		return fmt.Errorf("%w: empty resource type", ErrInvalidRegistry)
	}
	if len(datasets) == 0 {
		return fmt.Errorf("%w: %s", ErrNoDatasets, resourceType)
	}
	for _, d := range datasets {
		if strings.TrimSpace(d) == "" || strings.ContainsAny(d, `/\`) {
			return fmt.Errorf("%w: %s: bad dataset name %q", ErrInvalidRegistry, resourceType, d)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: %s", ErrRegistryFrozen, resourceType)
	}
	if _, ok := r.datasets[resourceType]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, resourceType)
	}
	r.order = append(r.order, resourceType)
	r.datasets[resourceType] = slices.Clone(datasets)
	return nil
}

func (r *Registry) freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Datasets returns the files of resourceType in read order.
func (r *Registry) Datasets(resourceType string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds, ok := r.datasets[resourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceTypeNotFound, resourceType)
	}
	return slices.Clone(ds), nil
}

// Has reports whether resourceType is registered.
func (r *Registry) Has(resourceType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.datasets[resourceType]
	return ok
}

// Types returns registered types in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// AllDatasets returns every dataset file once, in type then file order.
func (r *Registry) AllDatasets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, t := range r.order {
		for _, d := range r.datasets[t] {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// TypesFor returns the types reading dataset.
func (r *Registry) TypesFor(dataset string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, t := range r.order {
		if slices.Contains(r.datasets[t], dataset) {
			out = append(out, t)
		}
	}
	return out
}

// registryFile is the YAML shape accepted by LoadRegistry.
type registryFile struct {
	Types []struct {
		Name     string   `yaml:"name"`
		Datasets []string `yaml:"datasets"`
	} `yaml:"types"`
}

// LoadRegistry parses a YAML registry:
//
//	types:
//	  - name: Observation
//	    datasets: [labs.ndjson, vitals.ndjson]
func LoadRegistry(rd io.Reader) (*Registry, error) {
	var f registryFile
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidRegistry)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	if len(f.Types) == 0 {
		return nil, fmt.Errorf("%w: no types", ErrInvalidRegistry)
	}

	r := NewRegistry()
	for _, t := range f.Types {
		if err := r.Register(t.Name, t.Datasets...); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns the MIMIC-IV demo dataset layout.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, e := range mimicDatasets {
		if err := r.Register(e.name, e.files...); err != nil {
			panic(err)
		}
	}
	return r
}

var mimicDatasets = []struct {
	name  string
	files []string
}{
	{"Patient", []string{"MimicPatient.ndjson"}},
	{"Organization", []string{"MimicOrganization.ndjson"}},
	{"Location", []string{"MimicLocation.ndjson"}},
	{"Encounter", []string{"MimicEncounter.ndjson", "MimicEncounterED.ndjson", "MimicEncounterICU.ndjson"}},
	{"Condition", []string{"MimicCondition.ndjson", "MimicConditionED.ndjson"}},
	{"Observation", []string{
		"MimicObservationLabevents.ndjson",
		"MimicObservationChartevents.ndjson",
		"MimicObservationDatetimeevents.ndjson",
		"MimicObservationOutputevents.ndjson",
		"MimicObservationED.ndjson",
		"MimicObservationVitalSignsED.ndjson",
		"MimicObservationMicroTest.ndjson",
		"MimicObservationMicroOrg.ndjson",
		"MimicObservationMicroSusc.ndjson",
	}},
	{"Procedure", []string{"MimicProcedure.ndjson", "MimicProcedureED.ndjson", "MimicProcedureICU.ndjson"}},
	{"Medication", []string{"MimicMedication.ndjson", "MimicMedicationMix.ndjson"}},
	{"MedicationRequest", []string{"MimicMedicationRequest.ndjson"}},
	{"MedicationAdministration", []string{"MimicMedicationAdministration.ndjson", "MimicMedicationAdministrationICU.ndjson"}},
	{"MedicationDispense", []string{"MimicMedicationDispense.ndjson", "MimicMedicationDispenseED.ndjson"}},
	{"MedicationStatement", []string{"MimicMedicationStatementED.ndjson"}},
	{"Specimen", []string{"MimicSpecimen.ndjson", "MimicSpecimenLab.ndjson"}},
}
