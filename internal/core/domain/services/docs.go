// Package services provides domain services that orchestrate business operations
// across multiple domain entities in the delivery system. It implements business
// workflows that don't naturally belong to a single aggregate root.
//
// The package includes:
//   - Dispatcher: eligibility filter, scoring and deterministic ranking of couriers for
//     a pooled package, and the eligibility check of manual assignments
//
// Domain services are pure: they read aggregates and location snapshots and never
// mutate or persist them. Reservation is done by the lifecycle coordinator.
package services
