// Package validator registers the request field rules shared by the HTTP
// handlers on top of go-playground/validator.
package validator

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/scheduling-api/internal/scheduling"
)

var registerOnce sync.Once

// Register adds the custom rules to v:
//
//	clock   - "HH:MM" 24-hour wall clock time
//	isodate - "YYYY-MM-DD" calendar date
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("clock", validateClock); err != nil {
		return err
	}
	return v.RegisterValidation("isodate", validateDate)
}

// RegisterGin installs the rules on gin's default binding validator.
func RegisterGin() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
			return
		}
		err = Register(v)
	})
	return err
}

func validateClock(fl validator.FieldLevel) bool {
	return scheduling.ValidClock(fl.Field().String())
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := scheduling.ParseDate(fl.Field().String())
	return err == nil
}
