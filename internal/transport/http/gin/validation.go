package httpgin

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kirinyoku/travelgo/internal/domain"
)

var registerOnce sync.Once

// registerValidations adds the custom binding tags used by the request DTOs
// to gin's validator.
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("transport", func(fl validator.FieldLevel) bool {
			return domain.TransportType(fl.Field().String()).Valid()
		})
	})
}
