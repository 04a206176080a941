package i18n

import "golang.org/x/text/language"

// Error codes must match the codes defined in internal/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown                        = "UNKNOWN"
	CodeSessionInvalidDuration         = "SESSION_INVALID_DURATION"
	CodeSessionEmptyOwnerID            = "SESSION_EMPTY_OWNER_ID"
	CodeSessionInvalidStatusTransition = "SESSION_INVALID_STATUS_TRANSITION"
	CodePhaseTableInvalid              = "PHASE_TABLE_INVALID"
	CodePhaseNoWeight                  = "PHASE_NO_REMAINING_WEIGHT"
	CodeDecisionUnparseable            = "DECISION_UNPARSEABLE"
	CodeNotFound                       = "NOT_FOUND"
	CodeUserNotFound                   = "USER_NOT_FOUND"
	CodeStorageUnavailable             = "STORAGE_UNAVAILABLE"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	tag:    language.AmericanEnglish,
	messages: map[string]string{
		CodeUnknown: "An unexpected error occurred",

		// Session validation errors
		CodeSessionInvalidDuration: "Session duration must be greater than zero minutes",
		CodeSessionEmptyOwnerID:    "Session owner is required",

		// Session state errors
		CodeSessionInvalidStatusTransition: "Cannot {{.operation}} a session in status {{.status}}",

		// Phase configuration errors
		CodePhaseTableInvalid: "The phase configuration for this therapy model is invalid",
		CodePhaseNoWeight:     "No schedulable phases remain for this session",

		// Conversation errors
		CodeDecisionUnparseable: "The session could not interpret the last response",

		// Storage errors
		CodeNotFound:           "The requested resource was not found",
		CodeUserNotFound:       "The requested user was not found",
		CodeStorageUnavailable: "Session storage is temporarily unavailable",
	},
}
