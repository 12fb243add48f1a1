package arcgis

import (
	"encoding/json"
	"strings"
)

// Wire types for the service schema call. Required keys are pointers so
// absence is distinguishable from zero values and fails parsing.
type serviceMetadata struct {
	Name                      *string            `json:"name"`
	MaxRecordCount            *int64             `json:"maxRecordCount"`
	Type                      *string            `json:"type"`
	GeometryType              string             `json:"geometryType"`
	Fields                    []json.RawMessage  `json:"fields"`
	SupportsStatistics        bool               `json:"supportsStatistics"`
	SupportsPagination        bool               `json:"supportsPagination"`
	AdvancedQueryCapabilities *advancedQueryCaps `json:"advancedQueryCapabilities"`
	SourceSpatialReference    *spatialReference  `json:"sourceSpatialReference"`
}

type advancedQueryCaps struct {
	SupportsStatistics bool `json:"supportsStatistics"`
	SupportsPagination bool `json:"supportsPagination"`
}

type spatialReference struct {
	WKID int64 `json:"wkid"`
}

type fieldMetadata struct {
	Name   *string         `json:"name"`
	Type   *string         `json:"type"`
	Alias  *string         `json:"alias"`
	Domain *domainMetadata `json:"domain"`
}

type domainMetadata struct {
	Type        string       `json:"type"`
	CodedValues []codedValue `json:"codedValues"`
}

type codedValue struct {
	Code json.RawMessage `json:"code"`
	Name *string         `json:"name"`
}

// parseServiceMetadata decodes the schema call payload into a descriptor
// skeleton. Count, bounds, and caller overrides are filled in by Describe.
func parseServiceMetadata(baseURL string, data []byte) (*ServiceDescriptor, error) {
	var meta serviceMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, &SchemaError{Key: "(root)", Reason: "metadata is not valid JSON: " + err.Error()}
	}
	if meta.Name == nil {
		return nil, &SchemaError{Key: "name", Reason: "missing required key"}
	}
	if meta.MaxRecordCount == nil {
		return nil, &SchemaError{Key: "maxRecordCount", Reason: "missing required key"}
	}
	if meta.Type == nil {
		return nil, &SchemaError{Key: "type", Reason: "missing required key"}
	}

	desc := &ServiceDescriptor{
		BaseURL:      baseURL,
		Name:         *meta.Name,
		MaxChunkSize: *meta.MaxRecordCount,
		ServerType:   *meta.Type,
	}

	// advancedQueryCapabilities takes precedence over the top-level
	// capability booleans when present.
	if caps := meta.AdvancedQueryCapabilities; caps != nil {
		desc.SupportsStatistics = caps.SupportsStatistics
		desc.SupportsPagination = caps.SupportsPagination
	} else {
		desc.SupportsStatistics = meta.SupportsStatistics
		desc.SupportsPagination = meta.SupportsPagination
	}

	if desc.IsTable() {
		desc.GeometryKind = GeometryNone
	} else {
		if meta.GeometryType == "" {
			return nil, &SchemaError{Key: "geometryType", Reason: "missing required key"}
		}
		kind, err := ParseGeometryKind(meta.GeometryType)
		if err != nil {
			return nil, err
		}
		desc.GeometryKind = kind
	}

	if meta.Fields == nil {
		return nil, &SchemaError{Key: "fields", Reason: "missing required key"}
	}
	fields, err := parseFields(meta.Fields)
	if err != nil {
		return nil, err
	}
	desc.Fields = fields

	for i := range desc.Fields {
		if desc.Fields[i].Type == FieldTypeOID {
			desc.IdentifierField = &desc.Fields[i]
			break
		}
	}

	if meta.SourceSpatialReference != nil {
		desc.SourceSpatialRef = meta.SourceSpatialReference.WKID
	}

	return desc, nil
}

// parseFields decodes the attribute schema. Geometry-typed fields and the
// SHAPE pseudo-field are excluded: geometry is carried separately per
// feature and flattened by the encoder.
func parseFields(raw []json.RawMessage) ([]Field, error) {
	fields := make([]Field, 0, len(raw))
	for _, fr := range raw {
		var fm fieldMetadata
		if err := json.Unmarshal(fr, &fm); err != nil {
			return nil, &SchemaError{Key: "fields", Reason: "field is not an object", Raw: string(fr)}
		}
		if fm.Name == nil {
			return nil, &SchemaError{Key: "fields.name", Reason: "missing required key", Raw: string(fr)}
		}
		if fm.Type == nil {
			return nil, &SchemaError{Key: "fields.type", Reason: "missing required key", Raw: string(fr)}
		}
		if fm.Alias == nil {
			return nil, &SchemaError{Key: "fields.alias", Reason: "missing required key", Raw: string(fr)}
		}
		ft, err := ParseFieldType(*fm.Type)
		if err != nil {
			return nil, err
		}
		if ft == FieldTypeGeometry || strings.EqualFold(*fm.Name, "SHAPE") {
			continue
		}
		codes, err := parseDomain(fm.Domain)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{
			Name:  *fm.Name,
			Type:  ft,
			Alias: *fm.Alias,
			Codes: codes,
		})
	}
	return fields, nil
}

// parseDomain extracts a code-to-label mapping from a codedValue domain.
// Non-coded domains (ranges, nil) yield no mapping.
func parseDomain(dom *domainMetadata) (map[string]string, error) {
	if dom == nil || dom.Type != "codedValue" {
		return nil, nil
	}
	codes := make(map[string]string, len(dom.CodedValues))
	for _, cv := range dom.CodedValues {
		code, err := codeToString(cv.Code)
		if err != nil {
			return nil, err
		}
		if cv.Name == nil {
			return nil, &SchemaError{Key: "fields.domain.codedValues.name", Reason: "missing required key"}
		}
		codes[code] = *cv.Name
	}
	return codes, nil
}

// codeToString normalizes a domain code, which the wire format carries as
// either a number or a string.
func codeToString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", &SchemaError{Key: "fields.domain.codedValues.code", Reason: "missing required key"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", &SchemaError{Key: "fields.domain.codedValues.code", Reason: "expected number or string", Raw: string(raw)}
}
