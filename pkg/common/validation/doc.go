// Package validation provides common validation utilities for configuration
// parameters across the taskflow library.
//
// Every helper returns a *errors.ValidationError, which unwraps to
// errors.ErrInvalidConfiguration, so callers can test failures with
// errors.Is regardless of which field was rejected.
package validation
