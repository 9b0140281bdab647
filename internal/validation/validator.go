package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// Struct checks the `validate` tags on s. Problems come back as Errors keyed
// by JSON field name.
func Struct(s any) error {
	return convert(validate.Struct(s), "")
}

// Var checks a single value against tag, reporting problems under field.
func Var(field string, value any, tag string) error {
	return convert(validate.Var(value, tag), field)
}

// OneOfTag builds a validator oneof rule from a list of allowed values.
func OneOfTag(allowed []string) string {
	return "oneof=" + strings.Join(allowed, " ")
}

func convert(err error, field string) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := Errors{}
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		out.Add(name, "%s", message(fe))
	}
	return out.Err()
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max", "lte":
		if isString {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "min", "gte":
		if isString {
			return "must be at least " + fe.Param() + " characters"
		}
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	case "gt":
		if fe.Param() == "0" {
			return "must be greater than zero"
		}
		return "must be greater than " + fe.Param()
	case "gtefield":
		return "must not be before " + jsonName(fe.Param())
	case "ltefield":
		return "must not exceed " + jsonName(fe.Param())
	default:
		return "is invalid"
	}
}

// jsonName turns a Go field name such as MaxScore into max_score.
func jsonName(goName string) string {
	var b strings.Builder
	for i, r := range goName {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
