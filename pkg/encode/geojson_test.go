package encode

import (
	"encoding/json"
	"testing"

	"github.com/arcdump/arcdump/pkg/arcgis"
)

func TestRewriteFeature(t *testing.T) {
	enc := New(wellsDescriptor(), arcgis.FormatGeoJSON)
	chunk, err := enc.EncodeChunk(payloadOf(
		`{"type":"Feature","id":17,"geometry":{"type":"Point","coordinates":[10.5,-20.1]},"properties":{"OBJECTID":17,"STATUS":"2","DEPTH":120.5}}`,
	))
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	if len(chunk.Features) != 1 {
		t.Fatalf("len(Features) = %d, want 1", len(chunk.Features))
	}

	want := `{"type":"Feature","id":17,"geometry":{"type":"Point","coordinates":[10.5,-20.1]},"properties":{"OBJECTID":"17","STATUS":"2","STATUS_DESC":"Plugged","DEPTH":"120.5"}}`
	if got := string(chunk.Features[0]); got != want {
		t.Errorf("rewritten feature:\n got %s\nwant %s", got, want)
	}
}

func TestRewriteFeatureNoGeometryNoID(t *testing.T) {
	enc := New(wellsDescriptor(), arcgis.FormatGeoJSON)
	chunk, err := enc.EncodeChunk(payloadOf(
		`{"type":"Feature","properties":{"OBJECTID":1,"STATUS":"9","DEPTH":null}}`,
	))
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}

	want := `{"type":"Feature","geometry":null,"properties":{"OBJECTID":"1","STATUS":"9","STATUS_DESC":"","DEPTH":""}}`
	if got := string(chunk.Features[0]); got != want {
		t.Errorf("rewritten feature:\n got %s\nwant %s", got, want)
	}
}

func TestRewriteFeatureGeometryPassthrough(t *testing.T) {
	// The geometry block is copied byte for byte, unusual formatting
	// included.
	geometry := `{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[0,0]]]}`
	enc := New(wellsDescriptor(), arcgis.FormatGeoJSON)
	chunk, err := enc.EncodeChunk(payloadOf(
		`{"type":"Feature","geometry":` + geometry + `,"properties":{}}`,
	))
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}

	var parsed struct {
		Geometry json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(chunk.Features[0], &parsed); err != nil {
		t.Fatalf("rewritten feature is not valid JSON: %v", err)
	}
	if string(parsed.Geometry) != geometry {
		t.Errorf("geometry = %s, want %s", parsed.Geometry, geometry)
	}
}

func TestRewriteFeatureDropsUnknownProperties(t *testing.T) {
	enc := New(wellsDescriptor(), arcgis.FormatGeoJSON)
	chunk, err := enc.EncodeChunk(payloadOf(
		`{"type":"Feature","properties":{"OBJECTID":1,"STATUS":"1","DEPTH":2,"EXTRA":"dropped"}}`,
	))
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}

	var parsed struct {
		Properties map[string]string `json:"properties"`
	}
	if err := json.Unmarshal(chunk.Features[0], &parsed); err != nil {
		t.Fatalf("rewritten feature is not valid JSON: %v", err)
	}
	if _, ok := parsed.Properties["EXTRA"]; ok {
		t.Error("property outside the schema survived the rewrite")
	}
}

func TestRewriteFeatureMalformed(t *testing.T) {
	enc := New(wellsDescriptor(), arcgis.FormatGeoJSON)
	for _, feature := range []string{`"nope"`, `{"properties":42}`} {
		if _, err := enc.EncodeChunk(payloadOf(feature)); err == nil {
			t.Errorf("expected error for %s", feature)
		}
	}
}
