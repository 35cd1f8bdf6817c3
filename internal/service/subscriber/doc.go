// Package subscriber implements the newsletter audience: sign-ups,
// unsubscribes with their audit trail, and token based resubscribes.
//
// Email uniqueness is enforced by storage inside a scope chosen at
// construction time (global or per company). The service layer depends on
// the Repository and UnsubscriptionRepository interfaces defined in
// repository.go and never imports net/http or database/sql directly.
package subscriber
