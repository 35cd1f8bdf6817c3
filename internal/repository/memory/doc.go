// Package memory provides mutex-guarded in-memory implementations of the
// service repositories. They back development mode when no database is
// configured and the service and API tests.
package memory
