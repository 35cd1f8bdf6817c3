// Package campaign implements newsletter campaign lifecycle management.
//
// The service layer owns the status state machine, keeps the analytics
// snapshot consistent with its counts on every analytics write, and
// publishes realtime notifications on status changes. It depends on the
// repository interface defined in this package and never imports api/.
//
// Repository implementations live in repository/postgres/ and repository/memory/.
package campaign
