package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// FieldErrors maps a form field name to its message; templates look
// messages up with index.
type FieldErrors map[string]string

// formLevel carries errors that belong to no single field.
const formLevel = "_form"

// BindForm binds the posted form into out. On failure it returns the
// per field messages to render inline.
func BindForm(ctx *gin.Context, out any) (FieldErrors, bool) {
	if err := ctx.ShouldBindWith(out, binding.Form); err != nil {
		return toFieldErrors(parseBindError(err, out)), false
	}
	return nil, true
}

func toFieldErrors(list []FieldError) FieldErrors {
	out := make(FieldErrors, len(list))
	for _, fe := range list {
		if _, dup := out[fe.Field]; !dup {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

func parseBindError(err error, out any) []FieldError {
	rootType := baseStructType(out)

	var validatorError validator.ValidationErrors
	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   formPathFromValidatorError(rootType, fieldError),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return fields
	}

	var numError *strconv.NumError
	if errors.As(err, &numError) {
		return []FieldError{{Field: formLevel, Rule: "type", Message: "contains a value of the wrong type"}}
	}

	return []FieldError{{Field: formLevel, Rule: "invalid", Message: "could not be read, please try again"}}
}

func baseStructType(v any) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func formPathFromValidatorError(rootType reflect.Type, fieldError validator.FieldError) string {
	// namespace is "<StructName>.<Field>[.<NestedField>...]"
	namespace := fieldError.StructNamespace()
	if namespace == "" {
		return fieldError.Field()
	}

	parts := strings.Split(namespace, ".")
	if rootType != nil && rootType.Name() != "" && len(parts) > 0 && parts[0] == rootType.Name() {
		parts = parts[1:]
	}

	current := rootType
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		name := part
		var next reflect.Type

		if current != nil && current.Kind() == reflect.Struct {
			if sf, ok := current.FieldByName(part); ok {
				name = formNameFromStructField(sf)
				next = sf.Type
			}
		}

		out = append(out, name)

		for next != nil && next.Kind() == reflect.Pointer {
			next = next.Elem()
		}
		current = next
	}

	if len(out) == 0 {
		return fieldError.Field()
	}
	return strings.Join(out, ".")
}

func formNameFromStructField(sf reflect.StructField) string {
	tag := sf.Tag.Get("form")
	if tag == "" {
		return sf.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "len":
		return "must be exactly " + param + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "datetime":
		return "must be a valid date and time"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
