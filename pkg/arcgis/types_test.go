package arcgis

import (
	"errors"
	"testing"
)

func TestParseFieldType(t *testing.T) {
	valid := []struct {
		input string
		want  FieldType
	}{
		{"esriFieldTypeBlob", FieldTypeBlob},
		{"esriFieldTypeDate", FieldTypeDate},
		{"esriFieldTypeDouble", FieldTypeDouble},
		{"esriFieldTypeFloat", FieldTypeFloat},
		{"esriFieldTypeGeometry", FieldTypeGeometry},
		{"esriFieldTypeGlobalID", FieldTypeGlobalID},
		{"esriFieldTypeGUID", FieldTypeGUID},
		{"esriFieldTypeInteger", FieldTypeInteger},
		{"esriFieldTypeOID", FieldTypeOID},
		{"esriFieldTypeRaster", FieldTypeRaster},
		{"esriFieldTypeSingle", FieldTypeSingle},
		{"esriFieldTypeSmallInteger", FieldTypeSmallInteger},
		{"esriFieldTypeString", FieldTypeString},
		{"esriFieldTypeXML", FieldTypeXML},
	}

	for _, tt := range valid {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFieldType(tt.input)
			if err != nil {
				t.Fatalf("ParseFieldType(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFieldType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFieldType_Unknown(t *testing.T) {
	_, err := ParseFieldType("esriFieldTypeUnknown")
	if err == nil {
		t.Fatal("expected error for unknown field type")
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %T", err)
	}
}

func TestParseGeometryKind(t *testing.T) {
	valid := []struct {
		input string
		want  GeometryKind
	}{
		{"esriGeometryPoint", GeometryPoint},
		{"esriGeometryMultipoint", GeometryMultipoint},
		{"esriGeometryPolyline", GeometryPolyline},
		{"esriGeometryPolygon", GeometryPolygon},
		{"esriGeometryEnvelope", GeometryEnvelope},
	}

	for _, tt := range valid {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGeometryKind(tt.input)
			if err != nil {
				t.Fatalf("ParseGeometryKind(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseGeometryKind(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseGeometryKind_Unknown(t *testing.T) {
	if _, err := ParseGeometryKind("esriGeometryCircle"); err == nil {
		t.Fatal("expected error for unknown geometry kind")
	}
	// GeometryNone is assigned to tables, never parsed from the wire.
	if _, err := ParseGeometryKind("esriGeometryNone"); err == nil {
		t.Fatal("expected error for esriGeometryNone")
	}
}

func TestFormatQueryFormat(t *testing.T) {
	if got := FormatCSV.QueryFormat(); got != "json" {
		t.Errorf("FormatCSV.QueryFormat() = %q, want json", got)
	}
	if got := FormatGeoJSON.QueryFormat(); got != "geojson" {
		t.Errorf("FormatGeoJSON.QueryFormat() = %q, want geojson", got)
	}
}
