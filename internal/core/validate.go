package core

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// oneof splits on spaces, which the Arabic enumeration values contain.
	_ = v.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return Department(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("studylevel", func(fl validator.FieldLevel) bool {
		return StudyLevel(fl.Field().String()).IsValid()
	})
	return v
}

// Normalize trims surrounding whitespace from every field.
func (in StudentInput) Normalize() StudentInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Department = Department(strings.TrimSpace(string(in.Department)))
	in.StudyLevel = StudyLevel(strings.TrimSpace(string(in.StudyLevel)))
	in.BirthPlace = strings.TrimSpace(in.BirthPlace)
	in.RoomNumber = strings.TrimSpace(in.RoomNumber)
	in.FloorNumber = strings.TrimSpace(in.FloorNumber)
	return in
}

// Validate checks the input and returns the first violated rule as a sentinel error.
func (in StudentInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if fe.Tag() == "max" {
		return ErrFieldTooLong
	}
	switch fe.Field() {
	case "Name":
		return ErrEmptyName
	case "Department":
		return ErrInvalidDepartment
	case "StudyLevel":
		return ErrInvalidStudyLevel
	case "RoomNumber":
		return ErrEmptyRoom
	case "FloorNumber":
		return ErrEmptyFloor
	}
	return err
}
