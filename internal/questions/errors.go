package questions

import (
	"errors"
	"fmt"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

var (
	ErrNotFound        = errors.New("question not found")
	ErrVersionConflict = errors.New("question was modified concurrently")
)

// GenerationError wraps a failure of the model backend, including a reply
// that held no usable candidate.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("question generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func invalid(rule, format string, args ...any) error {
	return &models.ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *models.ValidationError
	return errors.As(err, &ve)
}
