package notification

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// v is the package-level validator. Custom tags are registered in init before
// any call to validateStruct.
var v = validator.New()

func init() {
	if err := v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register hhmm validation: %v", err))
	}
}

// ValidClock reports whether s is a 24h "HH:MM" time.
func ValidClock(s string) bool {
	return hhmmPattern.MatchString(s)
}

func validateStruct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
