package arcgis

import (
	"fmt"
	"strings"
)

// MaxChunkCeiling is the hard upper bound on records per chunk. Some
// servers advertise a larger maxRecordCount than they actually serve.
const MaxChunkCeiling = 10000

// Field describes one attribute field of a feature service.
type Field struct {
	// Name is the field name as used in query responses.
	Name string

	// Type is the service storage type.
	Type FieldType

	// Alias is the human-readable field label.
	Alias string

	// Codes maps raw coded-domain values to their labels. Nil when the
	// field carries no coded domain.
	Codes map[string]string
}

// IsCoded reports whether the field carries a coded-value domain.
func (f Field) IsCoded() bool {
	return f.Codes != nil
}

// Bounds holds the inclusive min/max of the identifier field.
type Bounds struct {
	Min int64
	Max int64
}

// ServiceDescriptor is the parsed, typed capabilities and schema of one
// remote feature service. It is built once per run and read-only after.
type ServiceDescriptor struct {
	// BaseURL is the service endpoint identity.
	BaseURL string

	// Name is the service name, used for output file naming.
	Name string

	// RecordCount is the total record count advertised at describe time.
	// It may be stale if the service mutates concurrently; that risk is
	// accepted, not corrected.
	RecordCount int64

	// MaxChunkSize is the server-advertised maximum records per response,
	// before clamping. Use ChunkSize for planning.
	MaxChunkSize int64

	// SupportsPagination reports offset/limit paging capability.
	SupportsPagination bool

	// SupportsStatistics reports statistics query capability, which
	// affects how identifier bounds are obtained.
	SupportsStatistics bool

	// ServerType is the raw service type string ("Feature Layer", "Table").
	ServerType string

	// GeometryKind is the geometry shape, GeometryNone for tables.
	GeometryKind GeometryKind

	// Fields is the ordered attribute schema. Order is significant: it
	// defines output column order.
	Fields []Field

	// IdentifierField is the unique sortable integer identifier field,
	// nil when the service exposes none.
	IdentifierField *Field

	// IdentifierBounds holds the identifier min/max, nil when unresolved.
	IdentifierBounds *Bounds

	// SourceSpatialRef is the service's spatial reference WKID, 0 when
	// unknown.
	SourceSpatialRef int64

	// RequestedSpatialRef is the caller's output spatial reference
	// override, 0 when unset. It takes precedence over SourceSpatialRef.
	RequestedSpatialRef int64
}

// IsTable reports whether the service carries no geometry.
func (d *ServiceDescriptor) IsTable() bool {
	return strings.EqualFold(d.ServerType, "Table")
}

// ChunkSize returns the records-per-chunk limit: the advertised maximum
// clamped to MaxChunkCeiling.
func (d *ServiceDescriptor) ChunkSize() int64 {
	if d.MaxChunkSize > MaxChunkCeiling {
		return MaxChunkCeiling
	}
	return d.MaxChunkSize
}

// OutputSpatialRef resolves the spatial reference for feature queries:
// the requested override when present, else the source reference.
// Returns 0 when neither is known.
func (d *ServiceDescriptor) OutputSpatialRef() int64 {
	if d.RequestedSpatialRef != 0 {
		return d.RequestedSpatialRef
	}
	return d.SourceSpatialRef
}

// HasSequentialIdentifiers reports whether the identifier range exactly
// spans the record count (max-min+1 == count). This is a data-quality
// diagnostic for the operator; it never changes the chunking strategy.
func (d *ServiceDescriptor) HasSequentialIdentifiers() bool {
	if d.IdentifierField == nil || d.IdentifierBounds == nil {
		return false
	}
	return d.IdentifierBounds.Max-d.IdentifierBounds.Min+1 == d.RecordCount
}

// Summary returns a printable report of the descriptor for operator
// display. Table rendering beyond plain lines is left to the caller.
func (d *ServiceDescriptor) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", d.BaseURL)
	fmt.Fprintf(&b, "Name: %s\n", d.Name)
	fmt.Fprintf(&b, "Record Count: %d\n", d.RecordCount)
	fmt.Fprintf(&b, "Max Chunk Size: %d\n", d.MaxChunkSize)
	fmt.Fprintf(&b, "Server Type: %s\n", d.ServerType)
	if !d.IsTable() {
		fmt.Fprintf(&b, "Geometry Type: %s\n", d.GeometryKind)
	}
	for _, f := range d.Fields {
		fmt.Fprintf(&b, "  %s\t%s\t%s\tcoded=%t\n", f.Name, f.Type, f.Alias, f.IsCoded())
	}
	if d.IdentifierField != nil {
		fmt.Fprintf(&b, "Identifier Field: %s\n", d.IdentifierField.Name)
	}
	if d.IdentifierBounds != nil {
		fmt.Fprintf(&b, "Identifier Bounds: [%d, %d]\n", d.IdentifierBounds.Min, d.IdentifierBounds.Max)
	}
	if d.SourceSpatialRef != 0 {
		fmt.Fprintf(&b, "Service Spatial Reference: %d\n", d.SourceSpatialRef)
	}
	return b.String()
}
