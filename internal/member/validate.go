package member

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
)

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks mandatory fields and formats, returning ErrInvalidInput on failure.
func Validate(m *Member) error {
	if m == nil {
		return fmt.Errorf("%w: member required", ErrInvalidInput)
	}
	err := validatorInstance().Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
		}
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// FoldName returns the case-folded form used for case-insensitive name matching.
// A Caser is stateful, so one is built per call.
func FoldName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
