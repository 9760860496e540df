package health_test

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/jonwraymond/fhirstore/health"
	"github.com/jonwraymond/fhirstore/store"
)

func ExampleAggregator_CheckAll() {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/data/Patient.ndjson", []byte(`{"resourceType":"Patient","id":"p1"}`+"\n"), 0o644)

	reg := store.NewRegistry()
	_ = reg.Register("Patient", "Patient.ndjson")
	_ = reg.Register("Condition", "Condition.ndjson")

	agg := health.NewAggregator()
	agg.Register(health.NewDatasetChecker(fs, "/data", reg))
	agg.Register(health.NewCheckerFunc("store", func(context.Context) health.Result {
		return health.Healthy("streaming")
	}))

	report := agg.CheckAll(context.Background())
	fmt.Println("overall:", report.Status)
	for _, e := range report.Entries {
		fmt.Printf("%s: %s (%s)\n", e.Name, e.Result.Status, e.Result.Message)
	}
	// Output:
	// overall: degraded
	// datasets: degraded (1 of 2 dataset files missing)
	// store: healthy (streaming)
}
