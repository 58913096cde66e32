// Package kernel holds the value objects shared by every aggregate of the dispatch core:
//   - UUID: identifiers with validation and text marshalling
//   - Coordinates and Location: validated WGS84 points with haversine distance
//   - TimeRange: half-open [start, end) intervals for history reads
//   - Geofence: circle, rectangle and polygon membership tests
//   - DomainEvent, EventMeta, EventRecorder: event envelope for the transactional outbox
//   - Clock: injectable time source
//
// All value objects reject their zero value through Validate.
package kernel
