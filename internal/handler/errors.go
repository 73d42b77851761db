package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"marketplace/internal/domain"
)

var statusByCode = map[domain.ErrorCode]int{
	domain.CodeValidation:        http.StatusBadRequest,
	domain.CodeNotFound:          http.StatusNotFound,
	domain.CodeConflict:          http.StatusConflict,
	domain.CodeInvalidTransition: http.StatusBadRequest,
	domain.CodeUnauthenticated:   http.StatusUnauthorized,
	domain.CodeUnauthorized:      http.StatusForbidden,
}

// HTTPStatus maps err onto a response status; unknown errors are 500.
func HTTPStatus(err error) int {
	var derr *domain.Error
	if errors.As(err, &derr) {
		if status, ok := statusByCode[derr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var derr *domain.Error
	if !errors.As(err, &derr) {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "internal server error",
		}})
		return
	}
	c.AbortWithStatusJSON(HTTPStatus(derr), gin.H{"error": derr})
}

// bind decodes the JSON body into dst and runs binding tags. Decoding and
// tag failures come back as VALIDATION_ERROR naming the field.
func bind(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.Validation(fe.Field(), describe(fe))
	}
	return &domain.Error{
		Code:    domain.CodeValidation,
		Message: "invalid request body",
		Details: map[string]any{"field": "body", "reason": err.Error()},
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "hexcolor":
		return "must be a hex color"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag() + " validation"
}

// useJSONFieldNames makes validator report json tag names instead of Go field
// names.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}
