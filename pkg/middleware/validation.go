package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var objectIDPattern = regexp.MustCompile(`^[a-f0-9]{24}$`)

// InitValidator initializes the validator with custom validators and wires
// them into Gin's binding engine
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		register(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})

	return validate
}

func register(v *validator.Validate) {
	_ = v.RegisterValidation("object_id", validateObjectID)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

func validateObjectID(fl validator.FieldLevel) bool {
	return objectIDPattern.MatchString(fl.Field().String())
}
