// Package errs holds the error types shared by the dispatch domain and its adapters.
//
// Each typed error unwraps to one sentinel (ErrValueIsInvalid, ErrValueIsRequired,
// ErrValueIsOutOfRange, ErrObjectNotFound or ErrVersionIsInvalid). The HTTP adapter and
// the command handlers classify failures with errors.Is against those sentinels, or with
// IsValidation for the three input categories, and never by message text.
package errs
