// Package parcel provides the Package aggregate: a delivery package with pickup and
// delivery locations, zone, weight and priority, and the state machine that drives it
// from acceptance to a terminal outcome.
//
// Package.Transition is the sole mutator of lifecycle state. It checks the edge table,
// applies the side effects of the edge (courier assignment and release, timestamps,
// pickup location, reasons), increments the version and records one domain event.
// Re-delivering a Delivered package succeeds without effect; any other repeat is an
// IllegalTransitionError.
//
// The package is named parcel because package is a Go keyword.
package parcel
