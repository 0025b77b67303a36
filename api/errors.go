package api

type apiErrorCode uint
type apiErrorType string

const (
	// Public error messages (included in response objects)

	// ErrParamValidationFailedCode code for param validation failed error
	ErrParamValidationFailedCode apiErrorCode = 1
	// ErrParamValidationFailedType type for param validation failed error
	ErrParamValidationFailedType apiErrorType = "ErrParamValidationFailed"

	// ErrSQLTimeout error message returned when timeout due to SQL connection
	ErrSQLTimeout = "The node is under heavy pressure, please try again later"
	// ErrSQLTimeoutCode code for sql timeout error
	ErrSQLTimeoutCode apiErrorCode = 2
	// ErrSQLTimeoutType type for sql timeout type
	ErrSQLTimeoutType apiErrorType = "ErrSQLTimeout"

	// ErrSQLNoRowsCode code for no rows error
	ErrSQLNoRowsCode apiErrorCode = 3
	// ErrSQLNoRowsType type for no rows error
	ErrSQLNoRowsType apiErrorType = "ErrSQLNoRows"

	// ErrForbiddenCode code returned when the caller is not allowed to run an operation
	ErrForbiddenCode apiErrorCode = 4
	// ErrForbiddenType type returned when the caller is not allowed to run an operation
	ErrForbiddenType apiErrorType = "ErrForbidden"

	// ErrNotFoundCode code returned when the requested tender or bid does not exist
	ErrNotFoundCode apiErrorCode = 5
	// ErrNotFoundType type returned when the requested tender or bid does not exist
	ErrNotFoundType apiErrorType = "ErrNotFound"

	// ErrStateConflictCode code returned when an operation is not allowed in the current
	// lifecycle state, for example revealing after the reveal deadline
	ErrStateConflictCode apiErrorCode = 6
	// ErrStateConflictType type returned when an operation is not allowed in the current
	// lifecycle state
	ErrStateConflictType apiErrorType = "ErrStateConflict"

	// ErrInternalCode code for internal errors, including failed value transfers
	ErrInternalCode apiErrorCode = 7
	// ErrInternalType type for internal errors, including failed value transfers
	ErrInternalType apiErrorType = "ErrInternal"

	// Internal error messages (used for logs or handling errors returned from internal components)

	// errCtxTimeout error message received internally when context reaches timeout
	errCtxTimeout = "context deadline exceeded"
)

type apiError struct {
	Err  error
	Code apiErrorCode
	Type apiErrorType
}

type apiErrorResponse struct {
	Message string       `json:"message"`
	Code    apiErrorCode `json:"code"`
	Type    apiErrorType `json:"type"`
}

func (a apiError) Error() string {
	return a.Err.Error()
}
