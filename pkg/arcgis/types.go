package arcgis

// GeometryKind identifies the geometry carried by a feature service.
type GeometryKind string

const (
	// GeometryPoint is a single coordinate pair.
	GeometryPoint GeometryKind = "esriGeometryPoint"

	// GeometryMultipoint is an unordered set of points.
	GeometryMultipoint GeometryKind = "esriGeometryMultipoint"

	// GeometryPolyline is one or more connected paths.
	GeometryPolyline GeometryKind = "esriGeometryPolyline"

	// GeometryPolygon is one or more closed rings.
	GeometryPolygon GeometryKind = "esriGeometryPolygon"

	// GeometryEnvelope is an axis-aligned bounding box.
	GeometryEnvelope GeometryKind = "esriGeometryEnvelope"

	// GeometryNone marks a table service without geometry.
	GeometryNone GeometryKind = "esriGeometryNone"
)

// ParseGeometryKind decodes a service-advertised geometry type string.
func ParseGeometryKind(s string) (GeometryKind, error) {
	switch GeometryKind(s) {
	case GeometryPoint, GeometryMultipoint, GeometryPolyline, GeometryPolygon, GeometryEnvelope:
		return GeometryKind(s), nil
	default:
		return "", &SchemaError{Key: "geometryType", Reason: "unknown geometry type", Raw: s}
	}
}

// FieldType identifies the storage type of a service field.
type FieldType string

const (
	FieldTypeBlob         FieldType = "esriFieldTypeBlob"
	FieldTypeDate         FieldType = "esriFieldTypeDate"
	FieldTypeDouble       FieldType = "esriFieldTypeDouble"
	FieldTypeFloat        FieldType = "esriFieldTypeFloat"
	FieldTypeGeometry     FieldType = "esriFieldTypeGeometry"
	FieldTypeGlobalID     FieldType = "esriFieldTypeGlobalID"
	FieldTypeGUID         FieldType = "esriFieldTypeGUID"
	FieldTypeInteger      FieldType = "esriFieldTypeInteger"
	FieldTypeOID          FieldType = "esriFieldTypeOID"
	FieldTypeRaster       FieldType = "esriFieldTypeRaster"
	FieldTypeSingle       FieldType = "esriFieldTypeSingle"
	FieldTypeSmallInteger FieldType = "esriFieldTypeSmallInteger"
	FieldTypeString       FieldType = "esriFieldTypeString"
	FieldTypeXML          FieldType = "esriFieldTypeXML"
)

// ParseFieldType decodes a service-advertised field type string.
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(s) {
	case FieldTypeBlob, FieldTypeDate, FieldTypeDouble, FieldTypeFloat,
		FieldTypeGeometry, FieldTypeGlobalID, FieldTypeGUID, FieldTypeInteger,
		FieldTypeOID, FieldTypeRaster, FieldTypeSingle, FieldTypeSmallInteger,
		FieldTypeString, FieldTypeXML:
		return FieldType(s), nil
	default:
		return "", &SchemaError{Key: "fields.type", Reason: "unknown field type", Raw: s}
	}
}

// Format selects the output representation of a harvest run.
type Format string

const (
	// FormatCSV produces one flat table with expanded coded domains and
	// flattened geometry columns.
	FormatCSV Format = "csv"

	// FormatGeoJSON produces one FeatureCollection document.
	FormatGeoJSON Format = "geojson"
)

// Extension returns the output file extension for the format.
func (f Format) Extension() string {
	return string(f)
}

// QueryFormat returns the value of the f query parameter requesting the
// matching serialization from the service.
func (f Format) QueryFormat() string {
	if f == FormatGeoJSON {
		return "geojson"
	}
	return "json"
}
