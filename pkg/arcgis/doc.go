// Package arcgis models the capabilities and schema of a remote ArcGIS
// feature service and builds an immutable ServiceDescriptor from the
// service's metadata endpoints.
//
// A descriptor is built once per run from two or three metadata calls:
//
//  1. The service schema call (name, limits, capabilities, fields).
//  2. A record count query.
//  3. An identifier-bounds query, only when the service cannot paginate
//     by offset. Bounds come from a min/max statistics query when the
//     service supports statistics, otherwise from a returnIdsOnly query.
//
// The schema call must complete first because the bounds query depends on
// the resolved identifier field name; the count and bounds calls are
// independent reads and are issued concurrently.
//
// Metadata parsing is strict: missing or mistyped required keys produce a
// SchemaError instead of silently defaulting, so a misconfigured or
// incompatible service fails before any feature query is issued.
package arcgis
