package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"rental/shared/failure"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var validate *val.Validate

func init() {
	validate = val.New(val.WithRequiredStructEnabled())

	// Report fields by their JSON name so violations match the request payload.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	err := validate.RegisterValidation("notblank", func(fl val.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	if err != nil {
		panic(err)
	}
}

// Validate reads from the given io.Reader into the given struct, and then performs validation
// on the struct using the validator package. If the struct is invalid according to the
// validation rules, an error is returned. Otherwise, nil is returned.
// https://github.com/go-playground/validator
func Validate[T any](r io.Reader, data *T) error {
	if err := Decode(r, data); err != nil {
		return err
	}

	return ValidateStruct(data)
}

// Decode reads a JSON body into data without validating it, for requests whose service
// validates them together with rules the struct tags cannot express.
func Decode[T any](r io.Reader, data *T) error {
	if err := json.NewDecoder(r).Decode(data); err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	return nil
}

// ValidateStruct validates data and reports every violated field, not just the first.
func ValidateStruct[T any](data *T) error {
	violations := Violations(data)
	if len(violations) == 0 {
		return nil
	}

	return violations.Failure()
}

// Violations returns every rule data breaks. Callers may append cross-field
// checks before converting the result into a failure.
func Violations[T any](data *T) ViolationList {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	return violations(err)
}
