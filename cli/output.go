package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jonwraymond/fhirstore/bundle"
)

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func writeNDJSON(w io.Writer, b bundle.Bundle) error {
	for _, e := range b.Entry {
		if _, err := fmt.Fprintf(w, "%s\n", e.Resource.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// writeBundleSummary prints one line per entry, for interactive use.
func writeBundleSummary(w io.Writer, b bundle.Bundle) error {
	if _, err := fmt.Fprintf(w, "%s %s: %d entries (total %d)\n", b.ResourceType, b.Type, len(b.Entry), b.Total); err != nil {
		return err
	}
	for _, e := range b.Entry {
		if _, err := fmt.Fprintf(w, "  %s\n", e.FullURL); err != nil {
			return err
		}
	}
	return nil
}
