// Package planner turns a ServiceDescriptor into the ordered sequence of
// chunk specifications that exactly covers the service's record set.
//
// Two partitioning strategies exist. Services that support offset
// pagination get (offset, limit) chunks; all others get inclusive
// identifier-range chunks derived from the identifier field bounds. Both
// strategies produce chunks in a fixed total order, and that order is the
// contract the output assembler relies on.
package planner

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/arcdump/arcdump/pkg/arcgis"
)

// Planning configuration errors. All of them surface before any network
// call is made.
var (
	// ErrMissingSpatialReference is returned when geometry options are
	// required but neither a requested nor a source spatial reference is
	// known.
	ErrMissingSpatialReference = errors.New("planner: no source or requested spatial reference")

	// ErrInvalidChunkSize is returned when the service advertises a
	// non-positive maximum record count.
	ErrInvalidChunkSize = errors.New("planner: service advertises non-positive max record count")
)

// ChunkSpec is one planned unit of work: a bounded query guaranteed to
// return at most ChunkSize records.
type ChunkSpec struct {
	// Index is the chunk's position in the planned order.
	Index int

	// Offset and Limit describe an offset-pagination chunk.
	Offset int64
	Limit  int64

	// LowerBound and UpperBound describe an inclusive identifier-range
	// chunk. The final range may overshoot the true maximum; the server
	// returns only what exists.
	LowerBound int64
	UpperBound int64

	// ByIdentifier selects between the two interpretations above.
	ByIdentifier bool

	// Query is the fully rendered query URL for this chunk.
	Query string
}

// Plan produces the ordered chunk sequence covering the descriptor's
// record count with no gaps and no overlaps. Planning is deterministic:
// identical descriptors yield identical sequences.
func Plan(desc *arcgis.ServiceDescriptor, format arcgis.Format) ([]ChunkSpec, error) {
	if !desc.SupportsPagination {
		if desc.IdentifierField == nil {
			return nil, arcgis.ErrMissingIdentifierField
		}
		if desc.IdentifierBounds == nil {
			return nil, arcgis.ErrMissingIdentifierBounds
		}
	}
	if desc.ChunkSize() <= 0 {
		return nil, ErrInvalidChunkSize
	}
	geometry, err := geometryOptions(desc)
	if err != nil {
		return nil, err
	}

	chunkSize := desc.ChunkSize()
	var specs []ChunkSpec
	remaining := desc.RecordCount
	for i := 0; remaining > 0; i++ {
		var spec ChunkSpec
		if desc.SupportsPagination {
			spec = offsetChunk(desc, format, geometry, i, chunkSize)
		} else {
			spec = identifierChunk(desc, format, geometry, i, chunkSize)
		}
		specs = append(specs, spec)
		remaining -= chunkSize
	}
	return specs, nil
}

// offsetChunk renders chunk i as an offset/limit query.
func offsetChunk(desc *arcgis.ServiceDescriptor, format arcgis.Format, geometry url.Values, i int, chunkSize int64) ChunkSpec {
	offset := int64(i) * chunkSize
	params := baseParams(format, geometry)
	params.Set("where", "1=1")
	params.Set("resultOffset", fmt.Sprintf("%d", offset))
	params.Set("resultRecordCount", fmt.Sprintf("%d", chunkSize))
	return ChunkSpec{
		Index:  i,
		Offset: offset,
		Limit:  chunkSize,
		Query:  queryURL(desc, params),
	}
}

// identifierChunk renders chunk i as an inclusive identifier-range query.
func identifierChunk(desc *arcgis.ServiceDescriptor, format arcgis.Format, geometry url.Values, i int, chunkSize int64) ChunkSpec {
	lower := desc.IdentifierBounds.Min + int64(i)*chunkSize
	upper := lower + chunkSize - 1
	name := desc.IdentifierField.Name
	params := baseParams(format, geometry)
	params.Set("where", fmt.Sprintf("%s >= %d and %s <= %d", name, lower, name, upper))
	return ChunkSpec{
		Index:        i,
		LowerBound:   lower,
		UpperBound:   upper,
		ByIdentifier: true,
		Query:        queryURL(desc, params),
	}
}

// baseParams carries the options shared by every chunk query: full field
// projection, serialization format, and geometry options when present.
func baseParams(format arcgis.Format, geometry url.Values) url.Values {
	params := url.Values{
		"outFields": {"*"},
		"f":         {format.QueryFormat()},
	}
	for k, vs := range geometry {
		params[k] = vs
	}
	return params
}

// geometryOptions resolves the geometry query options for the service.
// Table services attach none. Geometry-bearing services require a known
// spatial reference; its absence is a configuration error raised here,
// before any fetch.
func geometryOptions(desc *arcgis.ServiceDescriptor) (url.Values, error) {
	if desc.IsTable() {
		return nil, nil
	}
	sr := desc.OutputSpatialRef()
	if sr == 0 {
		return nil, ErrMissingSpatialReference
	}
	return url.Values{
		"geometryType": {string(desc.GeometryKind)},
		"outSR":        {fmt.Sprintf("%d", sr)},
	}, nil
}

func queryURL(desc *arcgis.ServiceDescriptor, params url.Values) string {
	return desc.BaseURL + "/query?" + params.Encode()
}
