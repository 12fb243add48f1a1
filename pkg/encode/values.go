package encode

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeObject decodes a JSON object preserving number literals, so
// integers never grow a trailing ".0" on the way through.
func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// convertValue renders one attribute value as output text:
// null/absent to empty string, booleans to uppercase TRUE/FALSE, numbers
// to their natural decimal representation, strings passed through, and
// structured values to compact JSON.
func convertValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case json.Number:
		return v.String(), nil
	case string:
		return v, nil
	case []any, map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}
