// Package output streams encoded chunks to durable storage, producing
// exactly one well-formed artifact per run: a CSV table or a GeoJSON
// FeatureCollection.
//
// Artifacts are written through a gocloud blob bucket. The blob writer
// stages content and commits the object only on Close, so an aborted run
// leaves no destination artifact behind; callers that abort call Discard
// instead of Commit.
package output

import (
	"context"
	"encoding/csv"
	"fmt"

	"gocloud.dev/blob"

	"github.com/arcdump/arcdump/pkg/arcgis"
	"github.com/arcdump/arcdump/pkg/encode"
)

// ObjectName returns the destination object name for a service harvest.
func ObjectName(serviceName string, format arcgis.Format) string {
	return serviceName + "." + format.Extension()
}

// Assembler consumes encoded chunks strictly in planned order and writes
// one output artifact incrementally. It is driven by the harvester's
// sequential consume loop and is not safe for concurrent use.
type Assembler struct {
	writer *blob.Writer
	cancel context.CancelFunc
	format arcgis.Format
	csv    *csv.Writer

	opened       bool
	wroteFeature bool
	closed       bool
}

// New opens the destination object and prepares the artifact. In CSV
// mode the header line is written immediately, before any data.
func New(ctx context.Context, bucket *blob.Bucket, serviceName string, format arcgis.Format, header []string) (*Assembler, error) {
	wctx, cancel := context.WithCancel(ctx)
	w, err := bucket.NewWriter(wctx, ObjectName(serviceName, format), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open output object: %w", err)
	}

	a := &Assembler{
		writer: w,
		cancel: cancel,
		format: format,
	}
	if format == arcgis.FormatCSV {
		a.csv = csv.NewWriter(w)
		if err := a.csv.Write(header); err != nil {
			a.Discard()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return a, nil
}

// WriteChunk appends one encoded chunk to the artifact.
func (a *Assembler) WriteChunk(c *encode.Chunk) error {
	if a.format == arcgis.FormatCSV {
		return a.writeCSV(c)
	}
	return a.writeGeoJSON(c)
}

func (a *Assembler) writeCSV(c *encode.Chunk) error {
	for _, row := range c.Rows {
		if err := a.csv.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	a.csv.Flush()
	return a.csv.Error()
}

func (a *Assembler) writeGeoJSON(c *encode.Chunk) error {
	// The opening is written once, before the first chunk's features; the
	// coordinate reference block is propagated from the first chunk only.
	if !a.opened {
		if _, err := a.writer.Write([]byte(`{"type":"FeatureCollection"`)); err != nil {
			return err
		}
		if c.CRS != nil {
			if _, err := a.writer.Write([]byte(`,"crs":`)); err != nil {
				return err
			}
			if _, err := a.writer.Write(c.CRS); err != nil {
				return err
			}
		}
		if _, err := a.writer.Write([]byte(`,"features":[`)); err != nil {
			return err
		}
		a.opened = true
	}
	for _, feature := range c.Features {
		if a.wroteFeature {
			if _, err := a.writer.Write([]byte(",")); err != nil {
				return err
			}
		}
		if _, err := a.writer.Write(feature); err != nil {
			return err
		}
		a.wroteFeature = true
	}
	return nil
}

// Commit finalizes the artifact and makes it visible at the destination.
// An empty run commits a valid empty artifact: a header-only CSV, or an
// empty FeatureCollection.
func (a *Assembler) Commit() error {
	if a.closed {
		return nil
	}
	switch a.format {
	case arcgis.FormatCSV:
		a.csv.Flush()
		if err := a.csv.Error(); err != nil {
			return err
		}
	case arcgis.FormatGeoJSON:
		closing := []byte("]}")
		if !a.opened {
			closing = []byte(`{"type":"FeatureCollection","features":[]}`)
		}
		if _, err := a.writer.Write(closing); err != nil {
			return err
		}
	}
	a.closed = true
	defer a.cancel()
	if err := a.writer.Close(); err != nil {
		return fmt.Errorf("commit output object: %w", err)
	}
	return nil
}

// Discard aborts the write so no artifact is committed. Safe to call
// after Commit, where it does nothing.
func (a *Assembler) Discard() {
	if a.closed {
		return
	}
	a.closed = true
	a.cancel()
	_ = a.writer.Close()
}
