package encode

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/arcdump/arcdump/pkg/arcgis"
	"github.com/arcdump/arcdump/pkg/fetcher"
)

func wellsDescriptor() *arcgis.ServiceDescriptor {
	return &arcgis.ServiceDescriptor{
		Name:         "Wells",
		ServerType:   "Feature Layer",
		GeometryKind: arcgis.GeometryPoint,
		Fields: []arcgis.Field{
			{Name: "OBJECTID", Type: arcgis.FieldTypeOID, Alias: "OBJECTID"},
			{Name: "STATUS", Type: arcgis.FieldTypeString, Alias: "Well Status",
				Codes: map[string]string{"1": "Active", "2": "Plugged"}},
			{Name: "DEPTH", Type: arcgis.FieldTypeDouble, Alias: "Depth"},
		},
	}
}

func payloadOf(features ...string) *fetcher.Payload {
	p := &fetcher.Payload{}
	for _, f := range features {
		p.Features = append(p.Features, json.RawMessage(f))
	}
	return p
}

func TestHeader(t *testing.T) {
	enc := New(wellsDescriptor(), arcgis.FormatCSV)
	want := []string{"OBJECTID", "STATUS", "STATUS_DESC", "DEPTH", "X", "Y"}
	if got := enc.Header(); !reflect.DeepEqual(got, want) {
		t.Errorf("Header() = %v, want %v", got, want)
	}
}

func TestHeaderTable(t *testing.T) {
	desc := wellsDescriptor()
	desc.ServerType = "Table"
	desc.GeometryKind = arcgis.GeometryNone

	enc := New(desc, arcgis.FormatCSV)
	want := []string{"OBJECTID", "STATUS", "STATUS_DESC", "DEPTH"}
	if got := enc.Header(); !reflect.DeepEqual(got, want) {
		t.Errorf("Header() = %v, want %v", got, want)
	}
}

func TestEncodeChunkCSV(t *testing.T) {
	enc := New(wellsDescriptor(), arcgis.FormatCSV)
	chunk, err := enc.EncodeChunk(payloadOf(
		`{"attributes":{"OBJECTID":1,"STATUS":"1","DEPTH":120.5},"geometry":{"x":10.5,"y":-20.1}}`,
		`{"attributes":{"OBJECTID":2,"STATUS":"9","DEPTH":null}}`,
	))
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}

	want := [][]string{
		{"1", "1", "Active", "120.5", "10.5", "-20.1"},
		{"2", "9", "", "", "", ""},
	}
	if !reflect.DeepEqual(chunk.Rows, want) {
		t.Errorf("Rows = %v, want %v", chunk.Rows, want)
	}
}

func TestEncodeIntegersKeepLiteralForm(t *testing.T) {
	enc := New(wellsDescriptor(), arcgis.FormatCSV)
	chunk, err := enc.EncodeChunk(payloadOf(
		`{"attributes":{"OBJECTID":9007199254740993,"STATUS":null,"DEPTH":42},"geometry":{"x":0,"y":0}}`,
	))
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	row := chunk.Rows[0]
	if row[0] != "9007199254740993" {
		t.Errorf("OBJECTID = %q, want the literal digits", row[0])
	}
	if row[3] != "42" {
		t.Errorf("DEPTH = %q, want 42 without a decimal point", row[3])
	}
}

func TestEncodeBooleanAndStructuredValues(t *testing.T) {
	desc := &arcgis.ServiceDescriptor{
		ServerType:   "Table",
		GeometryKind: arcgis.GeometryNone,
		Fields: []arcgis.Field{
			{Name: "ACTIVE", Type: arcgis.FieldTypeString},
			{Name: "TAGS", Type: arcgis.FieldTypeString},
		},
	}
	enc := New(desc, arcgis.FormatCSV)
	chunk, err := enc.EncodeChunk(payloadOf(
		`{"attributes":{"ACTIVE":true,"TAGS":["a","b"]}}`,
		`{"attributes":{"ACTIVE":false,"TAGS":{"k":1}}}`,
	))
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	want := [][]string{
		{"TRUE", `["a","b"]`},
		{"FALSE", `{"k":1}`},
	}
	if !reflect.DeepEqual(chunk.Rows, want) {
		t.Errorf("Rows = %v, want %v", chunk.Rows, want)
	}
}

func TestEncodeMalformedFeatureIsFatal(t *testing.T) {
	enc := New(wellsDescriptor(), arcgis.FormatCSV)
	tests := []struct {
		name    string
		feature string
	}{
		{"not an object", `[1,2,3]`},
		{"no attributes key", `{"geometry":{"x":1,"y":2}}`},
		{"attributes not an object", `{"attributes":[1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.EncodeChunk(payloadOf(tt.feature))
			if err == nil {
				t.Fatal("expected error")
			}
			if fetcher.IsTransient(err) {
				t.Errorf("malformed feature classified transient: %v", err)
			}
		})
	}
}

func TestEncodeChunkPreservesCRS(t *testing.T) {
	enc := New(wellsDescriptor(), arcgis.FormatCSV)
	p := payloadOf()
	p.CRS = json.RawMessage(`{"type":"name"}`)
	chunk, err := enc.EncodeChunk(p)
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	if string(chunk.CRS) != `{"type":"name"}` {
		t.Errorf("CRS = %s", chunk.CRS)
	}
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"true", true, "TRUE"},
		{"false", false, "FALSE"},
		{"integer", json.Number("7"), "7"},
		{"float", json.Number("1.25"), "1.25"},
		{"string", "hello", "hello"},
		{"array", []any{json.Number("1"), "x"}, `[1,"x"]`},
		{"object", map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertValue(tt.value)
			if err != nil {
				t.Fatalf("convertValue: %v", err)
			}
			if got != tt.want {
				t.Errorf("convertValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}

	if _, err := convertValue(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}
