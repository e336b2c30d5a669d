package mutate

import (
	"errors"

	"familytree/internal/model"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type newMember struct {
	Name string `validate:"required"`
}

func validateNewMember(f model.Fields) error {
	err := validate.Struct(newMember{Name: f.Name()})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return FieldError{Field: model.KeyName, Reason: verrs[0].Tag()}
	}
	return err
}
