package validator

import (
	"errors"
	"rental/shared/failure"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var (
	messages = map[string]string{
		"required": "{field} is required",
		"notblank": "{field} must not be blank",
		"gte":      "{field} must be greater than or equal to {param}",
		"lte":      "{field} must be less than or equal to {param}",
		"oneof":    "{field} must be one of {param}",
		"max":      "{field} must be less than or equal to {param}",
		"min":      "{field} must be greater than or equal to {param}",
		"email":    "{field} must be a valid email address",
		"datetime": "{field} must match the format {param}",
	}
)

// Violation is a single broken rule on a single field.
type Violation struct {
	Field   string
	Message string
}

type ViolationList []Violation

// Add appends a violation built outside the validator, e.g. a cross-field check.
func (v ViolationList) Add(field, message string) ViolationList {
	return append(v, Violation{Field: field, Message: message})
}

// Failure converts the list into a validation failure, or nil when empty.
func (v ViolationList) Failure() error {
	if len(v) == 0 {
		return nil
	}

	fields := make([]string, 0, len(v))
	msgs := make([]string, 0, len(v))

	for _, violation := range v {
		fields = append(fields, violation.Field)
		msgs = append(msgs, violation.Message)
	}

	return failure.Validation(fields, msgs)
}

func violations(err error) ViolationList {
	var valErrors val.ValidationErrors

	if !errors.As(err, &valErrors) {
		return ViolationList{{Message: err.Error()}}
	}

	list := make(ViolationList, 0, len(valErrors))

	for _, valErr := range valErrors {
		field := valErr.Field()

		msg := messages[valErr.Tag()]
		if msg == "" {
			msg = "{field} failed on the " + valErr.Tag() + " rule"
		}

		msg = strings.ReplaceAll(msg, "{field}", field)
		msg = strings.ReplaceAll(msg, "{param}", valErr.Param())

		list = append(list, Violation{Field: field, Message: msg})
	}

	return list
}
