// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session validation errors
	CodeSessionInvalidDuration Code = "SESSION_INVALID_DURATION"
	CodeSessionEmptyOwnerID    Code = "SESSION_EMPTY_OWNER_ID"

	// Session state errors
	CodeSessionInvalidStatusTransition Code = "SESSION_INVALID_STATUS_TRANSITION"

	// Phase configuration errors
	CodePhaseTableInvalid Code = "PHASE_TABLE_INVALID"
	CodePhaseNoWeight     Code = "PHASE_NO_REMAINING_WEIGHT"

	// Conversation errors
	CodeDecisionUnparseable Code = "DECISION_UNPARSEABLE"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeSessionInvalidDuration,
		CodeSessionEmptyOwnerID:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeSessionInvalidStatusTransition,
		CodePhaseNoWeight:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeUserNotFound:
		return codes.NotFound

	// Unavailable - persistence could not be reached
	case CodeStorageUnavailable:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}
