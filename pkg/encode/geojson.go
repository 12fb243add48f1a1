package encode

import (
	"bytes"
	"encoding/json"

	"github.com/arcdump/arcdump/pkg/fetcher"
)

// GeoJSON feature shape. Geometry passes through untouched; only the
// property set is rewritten.
type geoFeature struct {
	ID         json.RawMessage `json:"id"`
	Properties json.RawMessage `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// rewriteFeature rebuilds one GeoJSON feature: every schema property is
// converted through the value conversion rules, coded fields gain a
// _DESC companion property, and the geometry is copied verbatim.
// Properties are emitted in field declaration order so output bytes are
// deterministic.
func (e *Encoder) rewriteFeature(raw []byte) (json.RawMessage, error) {
	var feature geoFeature
	if err := json.Unmarshal(raw, &feature); err != nil {
		return nil, fetcher.Fatal("malformed feature: "+string(raw), err)
	}

	var props map[string]any
	if feature.Properties != nil && string(feature.Properties) != "null" {
		obj, err := decodeObject(feature.Properties)
		if err != nil {
			return nil, fetcher.Fatal("feature properties are not an object: "+string(raw), err)
		}
		props = obj
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":"Feature"`)
	if feature.ID != nil {
		buf.WriteString(`,"id":`)
		buf.Write(feature.ID)
	}
	buf.WriteString(`,"geometry":`)
	if feature.Geometry != nil {
		buf.Write(feature.Geometry)
	} else {
		buf.WriteString("null")
	}
	buf.WriteString(`,"properties":{`)

	first := true
	writeProp := func(name, value string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		val, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	for _, f := range e.desc.Fields {
		value, err := convertValue(props[f.Name])
		if err != nil {
			return nil, fetcher.Fatal("property "+f.Name, err)
		}
		if err := writeProp(f.Name, value); err != nil {
			return nil, err
		}
		if f.IsCoded() {
			if err := writeProp(f.Name+DescSuffix, f.Codes[value]); err != nil {
				return nil, err
			}
		}
	}

	buf.WriteString("}}")
	return buf.Bytes(), nil
}
