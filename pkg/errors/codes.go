package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrCodeTimeout: {
		Code:            ErrCodeTimeout,
		Retryable:       true,
		Description:     "Source did not answer within the configured timeout",
		SuggestedAction: "Raise the limit with --timeout or the timeout config key",
	},
	ErrCodeContextCancelled: {
		Code:            ErrCodeContextCancelled,
		Retryable:       false,
		Description:     "Operation cancelled by user or system",
		SuggestedAction: "Re-run the command once the interruption is resolved",
	},
	ErrCodeMissingColumn: {
		Code:            ErrCodeMissingColumn,
		Retryable:       false,
		Description:     "History source is missing a required column header",
		SuggestedAction: "Restore the listed headers in the meeting history export",
	},
	ErrCodeParseError: {
		Code:            ErrCodeParseError,
		Retryable:       false,
		Description:     "Source data could not be parsed",
		SuggestedAction: "Inspect the file for broken quoting or encoding: history.csv_encoding",
	},
	ErrCodeSourceUnavailable: {
		Code:            ErrCodeSourceUnavailable,
		Retryable:       true,
		Description:     "Source could not be reached",
		SuggestedAction: "Check the path or connection settings: prepbrief config show",
	},
	ErrCodeRateLimit: {
		Code:            ErrCodeRateLimit,
		Retryable:       true,
		Description:     "API rate limit exceeded",
		SuggestedAction: "Wait and retry, or lower llm.requests_per_minute",
	},
	ErrCodeProcessingError: {
		Code:            ErrCodeProcessingError,
		Retryable:       false,
		Description:     "Unclassified source error",
		SuggestedAction: "Re-run with --debug and check the logs for the underlying error",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Re-run with --debug and check the logs"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
