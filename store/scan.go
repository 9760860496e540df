package store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jonwraymond/fhirstore/observe"
	"github.com/jonwraymond/fhirstore/resource"
)

// datasetReader reads NDJSON files from a directory of an afero.Fs.
type datasetReader struct {
	fs      afero.Fs
	dir     string
	logger  observe.Logger
	maxLine int
}

func newDatasetReader(fs afero.Fs, dir string, o options) *datasetReader {
	return &datasetReader{fs: fs, dir: dir, logger: o.logger, maxLine: o.maxLineSize}
}

func (d *datasetReader) path(dataset string) string {
	return filepath.Join(d.dir, dataset)
}

// read calls visit for each well-formed document of dataset until visit
// returns false. Only context cancellation is returned as an error: a missing
// file yields nothing, a malformed line is skipped, and a read failure
// abandons the rest of the file.
func (d *datasetReader) read(ctx context.Context, dataset string, visit func(resource.Resource) bool) error {
	log := d.logger.With(observe.F("dataset", dataset))

	f, err := d.fs.Open(d.path(dataset))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn(ctx, "dataset file not found, skipping")
		} else {
			log.Warn(ctx, "dataset file not readable, skipping", observe.Err(err))
		}
		return nil
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, min(64*1024, d.maxLine)), d.maxLine)

	line := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++

		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		doc, err := resource.Parse(b)
		if err != nil {
			log.Warn(ctx, "skipping malformed line", observe.F("line", line), observe.Err(err))
			continue
		}
		if !visit(doc) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		log.Warn(ctx, "dataset read failed, keeping documents read so far",
			observe.F("line", line+1), observe.Err(err))
	}
	return nil
}

// exists reports whether dataset is present as a regular file.
func (d *datasetReader) exists(dataset string) bool {
	info, err := d.fs.Stat(d.path(dataset))
	return err == nil && !info.IsDir()
}
