package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxNameLength bounds process and exchange names
	MaxNameLength = 1000
)

func init() {
	validate = validator.New()

	// report yaml names in errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// matchfield accepts inventory match field names
	_ = validate.RegisterValidation("matchfield", func(fl validator.FieldLevel) bool {
		_, err := inventory.ParseField(fl.Field().String())
		return err == nil
	})

	// key accepts database/code keys
	_ = validate.RegisterValidation("key", func(fl validator.FieldLevel) bool {
		_, err := inventory.ParseKey(fl.Field().String())
		return err == nil
	})
}

// Struct validates any struct using its validate tags
func Struct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateDocument validates an inventory document: struct tags, then codes
// unique within the document and names within length limits
func ValidateDocument(doc *inventory.Document) error {
	if doc == nil {
		return errors.New("inventory document cannot be nil")
	}

	// Validate using struct tags
	if err := validate.Struct(doc); err != nil {
		return formatValidationError(err)
	}

	seen := make(map[string]int, len(doc.Processes))
	for i, p := range doc.Processes {
		if p == nil {
			return fmt.Errorf("processes[%d]: process cannot be empty", i)
		}
		if len(p.Name) > MaxNameLength {
			return fmt.Errorf("processes[%d]: name exceeds maximum length of %d characters", i, MaxNameLength)
		}
		if p.Code != "" {
			if j, dup := seen[p.Code]; dup {
				return fmt.Errorf("processes[%d]: code %q already used by processes[%d]", i, p.Code, j)
			}
			seen[p.Code] = i
		}
		for j, exc := range p.Exchanges {
			if len(exc.Name) > MaxNameLength {
				return fmt.Errorf("processes[%d].exchanges[%d]: name exceeds maximum length of %d characters", i, j, MaxNameLength)
			}
			if exc.Input != nil && (exc.Input.Database == "" || exc.Input.Code == "") {
				return fmt.Errorf("processes[%d].exchanges[%d]: input must name a database and a code", i, j)
			}
		}
	}

	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := strings.TrimPrefix(e.Namespace(), rootName(e.Namespace()))
		if field == "" {
			field = e.Field()
		}
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: %q must be one of [%s]", field, e.Value(), param)
		case "matchfield":
			return fmt.Errorf("%s: unknown match field %q", field, e.Value())
		case "key":
			return fmt.Errorf("%s: %q is not a database/code key", field, e.Value())
		case "url":
			return fmt.Errorf("%s: %q is not a valid URL", field, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}

// rootName returns the struct name prefix of a namespace, including its dot
func rootName(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[:i+1]
	}
	return ""
}
