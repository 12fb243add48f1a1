// Package encode converts raw chunk payloads into the output
// representation: flat CSV rows with coded-domain expansion and geometry
// flattening, or GeoJSON features with rewritten properties.
//
// Both modes apply the same value conversion rules. A field carrying a
// coded domain contributes two logical values per record: the raw code
// and the resolved label. The CSV header and GeoJSON property set expand
// accordingly.
package encode

import (
	"encoding/json"

	"github.com/arcdump/arcdump/pkg/arcgis"
	"github.com/arcdump/arcdump/pkg/fetcher"
)

// DescSuffix is appended to a coded field's name to form its label
// column or property.
const DescSuffix = "_DESC"

// Chunk is one encoded chunk, ready for the output assembler. Rows is
// populated in CSV mode, Features in GeoJSON mode.
type Chunk struct {
	Rows     [][]string
	Features []json.RawMessage
	CRS      json.RawMessage
}

// Encoder converts one chunk's raw features using a service's schema.
// It is read-only after construction and safe for concurrent use.
type Encoder struct {
	desc   *arcgis.ServiceDescriptor
	format arcgis.Format
}

// New creates an encoder for the descriptor's schema and output format.
func New(desc *arcgis.ServiceDescriptor, format arcgis.Format) *Encoder {
	return &Encoder{desc: desc, format: format}
}

// Header returns the CSV column names: field names in declaration order
// with coded fields contributing a NAME_DESC column, geometry columns
// appended last.
func (e *Encoder) Header() []string {
	var header []string
	for _, f := range e.desc.Fields {
		header = append(header, f.Name)
		if f.IsCoded() {
			header = append(header, f.Name+DescSuffix)
		}
	}
	return append(header, geometryColumns(e.desc.GeometryKind)...)
}

// EncodeChunk converts one chunk's raw features. A malformed feature is a
// fatal data contract violation that aborts the chunk.
func (e *Encoder) EncodeChunk(p *fetcher.Payload) (*Chunk, error) {
	chunk := &Chunk{CRS: p.CRS}
	for _, raw := range p.Features {
		if e.format == arcgis.FormatGeoJSON {
			rewritten, err := e.rewriteFeature(raw)
			if err != nil {
				return nil, err
			}
			chunk.Features = append(chunk.Features, rewritten)
			continue
		}
		row, err := e.encodeRow(raw)
		if err != nil {
			return nil, err
		}
		chunk.Rows = append(chunk.Rows, row)
	}
	return chunk, nil
}

// esri JSON feature shape. Geometry is absent on table services and may
// be absent on individual records of geometry-bearing services.
type rawFeature struct {
	Attributes json.RawMessage `json:"attributes"`
	Geometry   json.RawMessage `json:"geometry"`
}

// encodeRow flattens one feature into CSV values in schema order.
func (e *Encoder) encodeRow(raw []byte) ([]string, error) {
	var feature rawFeature
	if err := json.Unmarshal(raw, &feature); err != nil {
		return nil, fetcher.Fatal("malformed feature: "+string(raw), err)
	}
	if feature.Attributes == nil {
		return nil, fetcher.Fatal("feature has no attributes key: "+string(raw), nil)
	}
	attrs, err := decodeObject(feature.Attributes)
	if err != nil {
		return nil, fetcher.Fatal("feature attributes are not an object: "+string(raw), err)
	}

	row := make([]string, 0, len(e.desc.Fields))
	for _, f := range e.desc.Fields {
		value, err := convertValue(attrs[f.Name])
		if err != nil {
			return nil, fetcher.Fatal("attribute "+f.Name, err)
		}
		row = append(row, value)
		if f.IsCoded() {
			row = append(row, f.Codes[value])
		}
	}

	geometry, err := flattenGeometry(e.desc.GeometryKind, feature.Geometry)
	if err != nil {
		return nil, err
	}
	return append(row, geometry...), nil
}
