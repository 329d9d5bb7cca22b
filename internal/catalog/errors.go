package catalog

import "errors"

// ErrNotFound covers both genuinely missing nodes and nodes the requester
// is not allowed to see. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// ValidationError carries a client-facing message for a 400 response.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErr(msg string) error {
	return &ValidationError{msg: msg}
}

// Validation messages reused across operations.
const (
	msgMissingName     = "Missing name"
	msgInvalidType     = "Missing type or invalid type"
	msgMissingData     = "Missing data"
	msgInvalidData     = "Invalid data"
	msgParentNotFound  = "Parent not found"
	msgParentNotFolder = "Parent is not a folder"
	msgFolderContent   = "A folder doesn't have content"
)
