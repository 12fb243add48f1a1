package encode

import (
	"encoding/json"

	"github.com/arcdump/arcdump/pkg/arcgis"
	"github.com/arcdump/arcdump/pkg/fetcher"
)

// envelopeKeys lists the envelope components in column order. The z and m
// components are optional in the source structure.
var envelopeKeys = []string{"xmin", "ymin", "xmax", "ymax", "zmin", "zmax", "mmin", "mmax"}

// geometryColumns returns the CSV columns appended for a geometry kind.
func geometryColumns(kind arcgis.GeometryKind) []string {
	switch kind {
	case arcgis.GeometryPoint:
		return []string{"X", "Y"}
	case arcgis.GeometryMultipoint:
		return []string{"POINTS"}
	case arcgis.GeometryPolyline:
		return []string{"PATHS"}
	case arcgis.GeometryPolygon:
		return []string{"RINGS"}
	case arcgis.GeometryEnvelope:
		return []string{"XMIN", "YMIN", "XMAX", "YMAX", "ZMIN", "ZMAX", "MMIN", "MMAX"}
	default:
		return nil
	}
}

// flattenGeometry renders a feature's geometry as CSV values per kind.
// Missing geometry on a geometry-bearing feature yields all-empty values
// for the expected columns, not an error.
func flattenGeometry(kind arcgis.GeometryKind, raw json.RawMessage) ([]string, error) {
	if kind == arcgis.GeometryNone {
		return nil, nil
	}

	var geometry map[string]any
	if raw != nil && string(raw) != "null" {
		obj, err := decodeObject(raw)
		if err != nil {
			return nil, fetcher.Fatal("feature geometry is not an object: "+string(raw), err)
		}
		geometry = obj
	}

	keys := geometryValueKeys(kind)
	values := make([]string, 0, len(keys))
	for _, key := range keys {
		value, err := convertValue(geometry[key])
		if err != nil {
			return nil, fetcher.Fatal("geometry component "+key, err)
		}
		values = append(values, value)
	}
	return values, nil
}

// geometryValueKeys maps a geometry kind to the source keys read from the
// geometry object, in column order.
func geometryValueKeys(kind arcgis.GeometryKind) []string {
	switch kind {
	case arcgis.GeometryPoint:
		return []string{"x", "y"}
	case arcgis.GeometryMultipoint:
		return []string{"points"}
	case arcgis.GeometryPolyline:
		return []string{"paths"}
	case arcgis.GeometryPolygon:
		return []string{"rings"}
	case arcgis.GeometryEnvelope:
		return envelopeKeys
	default:
		return nil
	}
}
