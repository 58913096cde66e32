// Package geolocation holds the courier position snapshot and the rules that decide
// whether a position can be trusted: report validation, freshness and the velocity check
// that flags implausible jumps.
package geolocation
