package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jonwraymond/fhirstore/store"
)

// DatasetChecker verifies that the data directory and the dataset files
// named by a registry exist.
//
// A missing directory or a directory with none of the files is unhealthy.
// Some missing files is degraded: the store still serves the other types and
// returns empty results for types whose files are all absent.
type DatasetChecker struct {
	fs  afero.Fs
	dir string
	reg *store.Registry
}

// NewDatasetChecker creates a checker for reg's datasets under dir.
func NewDatasetChecker(fs afero.Fs, dir string, reg *store.Registry) *DatasetChecker {
	return &DatasetChecker{fs: fs, dir: dir, reg: reg}
}

// Name returns "datasets".
func (d *DatasetChecker) Name() string {
	return "datasets"
}

// Check stats every registered dataset file.
func (d *DatasetChecker) Check(ctx context.Context) Result {
	info, err := d.fs.Stat(d.dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Unhealthy(fmt.Sprintf("data directory %s does not exist", d.dir), ErrDataDirMissing)
	case err != nil:
		return Unhealthy(fmt.Sprintf("data directory %s is not readable", d.dir), err)
	case !info.IsDir():
		return Unhealthy(fmt.Sprintf("%s is not a directory", d.dir), ErrDataDirMissing)
	}

	var present, missing []string
	var bytes int64
	for _, ds := range d.reg.AllDatasets() {
		if err := ctx.Err(); err != nil {
			return Unhealthy("context cancelled", err)
		}
		fi, err := d.fs.Stat(filepath.Join(d.dir, ds))
		if err != nil || fi.IsDir() {
			missing = append(missing, ds)
			continue
		}
		present = append(present, ds)
		bytes += fi.Size()
	}

	var empty []string
	for _, t := range d.reg.Types() {
		if !d.anyPresent(t, present) {
			empty = append(empty, t)
		}
	}

	details := map[string]any{
		"dir":         d.dir,
		"present":     len(present),
		"missing":     missing,
		"empty_types": empty,
		"bytes":       bytes,
	}

	switch {
	case len(present) == 0:
		return Unhealthy("no dataset files found in "+d.dir, ErrNoDatasets).WithDetails(details)
	case len(missing) > 0:
		return Degraded(fmt.Sprintf("%d of %d dataset files missing", len(missing), len(missing)+len(present))).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("%d dataset files present", len(present))).WithDetails(details)
	}
}

func (d *DatasetChecker) anyPresent(resourceType string, present []string) bool {
	datasets, _ := d.reg.Datasets(resourceType)
	for _, ds := range datasets {
		for _, p := range present {
			if p == ds {
				return true
			}
		}
	}
	return false
}
