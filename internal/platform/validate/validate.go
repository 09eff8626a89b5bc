package validate

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
	})
	return v
}

// Struct validates a request DTO against its validate tags.
func Struct(s any) error {
	return instance().Struct(s)
}

func Var(field any, tag string) error {
	return instance().Var(field, tag)
}

// Fields flattens validator errors into field -> failed-rule, for error
// payloads. Returns nil when err is not a validation error.
func Fields(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}
