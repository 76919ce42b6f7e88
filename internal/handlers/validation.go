package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/courtlink/playerfinder/pkg/errors"
	"github.com/courtlink/playerfinder/pkg/response"
	appValidator "github.com/courtlink/playerfinder/pkg/validator"
)

// bindAndValidate decodes the JSON body into dest and runs struct validation,
// writing the error response itself when either step fails.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	var ve appValidator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", failure.Field))
			case "email":
				messages = append(messages, fmt.Sprintf("%s must be a valid email address", failure.Field))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", failure.Field, failure.Param))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid", failure.Field))
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}
