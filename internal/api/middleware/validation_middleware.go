package middleware

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/habitquest/backend/pkg/logger"
	"go.uber.org/zap"
)

const validatedModelKey = "validated_model"

var weekdayNames = map[string]struct{}{
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
}

// ValidationMiddleware handles request validation
type ValidationMiddleware struct {
	validator *validator.Validate
	log       *logger.Logger
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(log *logger.Logger) *ValidationMiddleware {
	if log == nil {
		log = logger.NewNop()
	}
	v := validator.New()

	// Report json names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("not_empty", validateNotEmpty)
	v.RegisterValidation("weekday", validateWeekday)
	v.RegisterValidation("clock", validateClock)

	return &ValidationMiddleware{
		validator: v,
		log:       log.Named("validation"),
	}
}

// ValidateRequest binds the JSON body into a fresh instance of model's type,
// validates it and stores the pointer for GetValidated.
func (m *ValidationMiddleware) ValidateRequest(model interface{}) gin.HandlerFunc {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	return func(c *gin.Context) {
		modelValue := reflect.New(modelType).Interface()

		if err := c.ShouldBindJSON(modelValue); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			c.Abort()
			return
		}

		if err := m.validator.Struct(modelValue); err != nil {
			details := fieldErrors(err)
			m.log.Debug("Validation failed",
				zap.Any("errors", details),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation failed",
				"details": details,
			})
			c.Abort()
			return
		}

		c.Set(validatedModelKey, modelValue)
		c.Next()
	}
}

// GetValidated returns the body stored by ValidateRequest.
func GetValidated[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(validatedModelKey)
	if !ok {
		return nil, false
	}
	model, ok := v.(*T)
	return model, ok
}

func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = formatValidationError(fe)
	}
	return out
}

// Custom validators
func validateNotEmpty(fl validator.FieldLevel) bool {
	return len(strings.TrimSpace(fl.Field().String())) > 0
}

func validateWeekday(fl validator.FieldLevel) bool {
	_, ok := weekdayNames[strings.ToLower(fl.Field().String())]
	return ok
}

// validateClock accepts HH:MM in 24h form.
func validateClock(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return h < 24 && mm < 60
}

// Helper function to format validation errors
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "value is too short"
	case "max":
		return "value is too long"
	case "oneof":
		return "must be one of: " + err.Param()
	case "not_empty":
		return "this field cannot be empty"
	case "weekday":
		return "must be a day of the week"
	case "clock":
		return "must be a time in HH:MM form"
	default:
		return "invalid value"
	}
}
