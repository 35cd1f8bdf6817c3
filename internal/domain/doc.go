// Package domain defines the core business types for the newsletter and
// booking back office.
//
// Types in this package are pure value objects. They carry no database
// handles and no HTTP concerns; they are the shared language between
// handlers, services, and repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Validation and derivation methods are allowed when they are pure
//   - Constants and enums belong here
package domain
