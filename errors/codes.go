package errors

// ErrorCode is the machine readable code carried by every AppError.
type ErrorCode string

const (
	ErrorCode_HTTP_OK           ErrorCode = "OK"
	ErrorCode_INTERNAL          ErrorCode = "INTERNAL"
	ErrorCode_INVALID_ARGUMENT  ErrorCode = "INVALID_ARGUMENT"
	ErrorCode_VALIDATION_FAILED ErrorCode = "VALIDATION_FAILED"
	ErrorCode_NOT_FOUND         ErrorCode = "NOT_FOUND"
	ErrorCode_ALREADY_EXISTS    ErrorCode = "ALREADY_EXISTS"
	ErrorCode_PERMISSION_DENIED ErrorCode = "PERMISSION_DENIED"
	ErrorCode_FORBIDDEN         ErrorCode = "FORBIDDEN"
	ErrorCode_UNAUTHENTICATED   ErrorCode = "UNAUTHENTICATED"
	ErrorCode_UNAVAILABLE       ErrorCode = "UNAVAILABLE"
	ErrorCode_TOO_MANY_REQUESTS ErrorCode = "TOO_MANY_REQUESTS"

	// auth
	ErrorCode_AUTH_INVALID_TOKEN         ErrorCode = "AUTH_INVALID_TOKEN"
	ErrorCode_AUTH_TOKEN_EXPIRED         ErrorCode = "AUTH_TOKEN_EXPIRED"
	ErrorCode_AUTH_INVALID_CREDENTIALS   ErrorCode = "AUTH_INVALID_CREDENTIALS"
	ErrorCode_AUTH_USER_INACTIVE         ErrorCode = "AUTH_USER_INACTIVE"
	ErrorCode_AUTH_USER_ALREADY_EXISTS   ErrorCode = "AUTH_USER_ALREADY_EXISTS"
	ErrorCode_AUTH_INVALID_REFRESH_TOKEN ErrorCode = "AUTH_INVALID_REFRESH_TOKEN"
	ErrorCode_AUTH_OAUTH_FAILED          ErrorCode = "AUTH_OAUTH_FAILED"

	// recordings
	ErrorCode_RECORDING_NOT_FOUND        ErrorCode = "RECORDING_NOT_FOUND"
	ErrorCode_RECORDING_INVALID_STATE    ErrorCode = "RECORDING_INVALID_STATE"
	ErrorCode_RECORDING_UPLOAD_FAILED    ErrorCode = "RECORDING_UPLOAD_FAILED"
	ErrorCode_RECORDING_UNSUPPORTED_TYPE ErrorCode = "RECORDING_UNSUPPORTED_TYPE"
	ErrorCode_RECORDING_TOO_LARGE        ErrorCode = "RECORDING_TOO_LARGE"
	ErrorCode_TRANSCRIPT_MISSING         ErrorCode = "TRANSCRIPT_MISSING"

	// ai
	ErrorCode_AI_TRANSCRIPTION_FAILED ErrorCode = "AI_TRANSCRIPTION_FAILED"
	ErrorCode_AI_ANALYSIS_FAILED      ErrorCode = "AI_ANALYSIS_FAILED"

	// invitations and templates
	ErrorCode_INVITATION_EXPIRED  ErrorCode = "INVITATION_EXPIRED"
	ErrorCode_INVITATION_ACCEPTED ErrorCode = "INVITATION_ACCEPTED"

	// integrations
	ErrorCode_INTEGRATION_STORAGE_FAILED ErrorCode = "INTEGRATION_STORAGE_FAILED"
	ErrorCode_INTEGRATION_CACHE_FAILED   ErrorCode = "INTEGRATION_CACHE_FAILED"
	ErrorCode_DB_TRANSACTION_FAILED      ErrorCode = "DB_TRANSACTION_FAILED"
)

func (c ErrorCode) String() string {
	return string(c)
}
