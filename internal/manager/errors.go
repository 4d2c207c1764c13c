package manager

import (
	"strings"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/shared"
)

// FormError reports why submitted form data was rejected.
//
// Messages apply to the whole form, Fields to single widgets.
type FormError struct {
	Messages []string
	Fields   models.ValidationErrors
}

func (e *FormError) Error() string {
	parts := make([]string, 0, len(e.Messages)+len(e.Fields))
	parts = append(parts, e.Messages...)
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *FormError) Unwrap() error { return shared.ErrInvalidInput }

// Err returns nil when the form carries no error.
func (e *FormError) Err() error {
	if len(e.Messages) == 0 && len(e.Fields) == 0 {
		return nil
	}
	return e
}
