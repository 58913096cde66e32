// Package courier provides the Courier aggregate root of the dispatch core.
//
// A courier carries identity and contact data, a vehicle class that fixes the default
// capacity and speed, a weekly shift schedule, a work zone, and a load counter with the
// number of packages currently assigned to it.
//
// The package includes:
//   - Courier: the aggregate root with availability and load transitions
//   - Status and TransportType: enumerations with parsing and validation
//   - WorkHours and TimeOfDay: shift windows, including windows that cross midnight
//   - Contact: E.164 phone number, e-mail address and optional push token
//   - events raised on registration, status changes and profile updates
//
// Key business rules:
//   - current load never exceeds max load; Free becomes Busy at capacity and back
//   - Unavailable couriers keep their load but receive no new packages
//   - Archived is terminal and requires an empty load
//   - a courier accepts a package only when Free, on shift, below capacity, in the
//     package zone (or "*"), and within its maximum pickup distance
package courier
