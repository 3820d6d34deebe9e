package employees

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Houeta/ems-roster/internal/models"
)

const tagEmployeeCode = "emscode"

var (
	validate = newValidator()

	// labels overrides generated field labels where the acronym matters.
	labels = map[string]string{
		FieldEmployeeCode: "Employee ID",
		FieldEmail:        "Email ID",
	}
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(tagEmployeeCode, func(fl validator.FieldLevel) bool {
		return strings.HasPrefix(fl.Field().String(), models.EmployeeCodePrefix)
	}); err != nil {
		panic("failed to register employee code validation: " + err.Error())
	}

	return v
}

// ValidateInput checks a create request. It returns the first failing field as
// *InvalidFieldError.
func ValidateInput(input models.EmployeeInput) error {
	return mapValidationError(validate.Struct(input))
}

// ValidatePatch checks an update request. Empty fields are not validated.
func ValidatePatch(patch models.EmployeePatch) error {
	return mapValidationError(validate.Struct(patch))
}

// CheckUnique scans existing for a record, other than the one with excludeID, that
// already holds the candidate's employee code or email. The employee code is
// checked before the email on each record and the first colliding record wins.
// An excludeID of 0 excludes nothing.
func CheckUnique(existing []models.Employee, candidate models.Employee, excludeID int64) error {
	for _, emp := range existing {
		if excludeID != 0 && emp.ID == excludeID {
			continue
		}

		if candidate.EmployeeID != "" && emp.EmployeeID == candidate.EmployeeID {
			return &DuplicateError{Field: FieldEmployeeCode, Value: candidate.EmployeeID, Kind: ErrDuplicateEmployeeCode}
		}
		if candidate.Email != "" && strings.EqualFold(emp.Email, candidate.Email) {
			return &DuplicateError{Field: FieldEmail, Value: candidate.Email, Kind: ErrDuplicateEmail}
		}
	}

	return nil
}

func mapValidationError(err error) error {
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &InvalidFieldError{Reason: "Invalid input: " + err.Error()}
	}

	first := errs[0]
	field := first.Field()
	label := fieldLabel(field)

	switch first.Tag() {
	case "required":
		return &InvalidFieldError{Field: field, Reason: "Please provide a valid " + label}
	case tagEmployeeCode:
		return &InvalidFieldError{
			Field:  field,
			Reason: label + ` must start with "` + models.EmployeeCodePrefix + `"`,
		}
	default:
		return &InvalidFieldError{Field: field, Reason: label + " is invalid"}
	}
}

// fieldLabel turns a JSON field name such as "phone" into "Phone".
func fieldLabel(field string) string {
	if label, ok := labels[field]; ok {
		return label
	}

	var words strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			words.WriteRune(' ')
		}
		words.WriteRune(r)
	}

	return cases.Title(language.English).String(words.String())
}
