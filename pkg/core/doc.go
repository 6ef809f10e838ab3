// Package core provides the fundamental types and interfaces for the
// triggers package.
//
// This package contains:
//   - Trigger data model with GORM annotations
//   - Spec, the serialized recurrence definition of a trigger
//   - Storage interface defining the persistence contract
//   - Event types for monitoring trigger activity
//   - Error variables shared across the module
//
// Most users should import the root package
// github.com/jdziat/simple-recurring-triggers instead of this package
// directly.
package core
