// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Every response uses the same envelope: {success, message, data} with an
// optional pagination block on list endpoints and an errors array on
// validation failures.
package httputil
