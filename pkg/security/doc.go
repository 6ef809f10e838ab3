// Package security provides validation, sanitization, and limits for
// the triggers package.
//
// This package includes:
//   - Input validation for trigger names
//   - Error message sanitization before storage
//   - Clamping functions to enforce safe limits on dispatch concurrency
//   - Security-related constants defining maximum sizes and counts
//
// Most users should import the root package
// github.com/jdziat/simple-recurring-triggers which re-exports the
// limits.
package security
