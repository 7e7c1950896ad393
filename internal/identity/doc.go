// Package identity manages users, their role, password credentials, lockout
// tracking and password reset tokens.
//
// Lookups return (nil, nil) when the user does not exist. Operations that can
// fail for user-facing reasons return *OperationError with one Failure per
// message.
package identity
