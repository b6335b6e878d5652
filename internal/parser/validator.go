package parser

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/me/schedkit/pkg/model"
)

// Validator reports every invalid parameter of a request at once, where
// model validation stops at the first.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{logger: logger.With("component", "validator")}
}

// Validate checks a task set and platform.
// Returns nil if valid, or an *model.APIError with FieldError details.
func (v *Validator) Validate(ts model.TaskSet, p model.Platform) *model.APIError {
	var errs []model.FieldError

	errs = append(errs, v.validatePlatform(p)...)
	errs = append(errs, v.validateTasks(ts)...)

	if len(errs) == 0 {
		return nil
	}
	v.logger.Debug("task set rejected", "errors", len(errs))
	return model.NewValidationError("task set validation failed", errs...)
}

func (v *Validator) validatePlatform(p model.Platform) []model.FieldError {
	if err := p.Validate(); err != nil {
		return []model.FieldError{fieldError(err)}
	}
	return nil
}

func (v *Validator) validateTasks(ts model.TaskSet) []model.FieldError {
	if len(ts) == 0 {
		return []model.FieldError{{Field: "tasks", Message: "task set is empty"}}
	}
	var errs []model.FieldError
	for i, t := range ts {
		if err := t.Validate(); err != nil {
			var ve *model.ValueError
			if errors.As(err, &ve) {
				ve.Task = i
			}
			errs = append(errs, fieldError(err))
		}
	}
	return errs
}

// ValidateResource checks a periodic resource model given in a request.
func (v *Validator) ValidateResource(r model.PeriodicResourceModel) *model.APIError {
	if err := r.Validate(); err != nil {
		fe := fieldError(err)
		fe.Path = fmt.Sprintf("interface.%s", fe.Field)
		return model.NewValidationError("invalid periodic resource", fe)
	}
	return nil
}

func fieldError(err error) model.FieldError {
	var ve *model.ValueError
	if errors.As(err, &ve) {
		return ve.FieldError()
	}
	return model.FieldError{Message: err.Error()}
}
