package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/FernandoVinha/TheManager/pkg/errors"
	"github.com/FernandoVinha/TheManager/pkg/response"
	appValidator "github.com/FernandoVinha/TheManager/pkg/validator"
)

// bindAndValidate decodes the JSON body into dest and applies its validate
// tags. On failure it writes a 400 and returns false.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(describeDecodeError(err)))
		return false
	}
	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}
	return true
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is required"
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type.Kind())
	default:
		return "invalid JSON payload"
	}
}

// validationMessages renders one failed tag; %[1]s is the field, %[2]s the param.
var validationMessages = map[string]string{
	"required":   "%[1]s is required",
	"email":      "%[1]s must be a valid email address",
	"url":        "%[1]s must be an absolute URL",
	"alphanum":   "%[1]s may only contain letters and digits",
	"min":        "%[1]s must be at least %[2]s characters",
	"max":        "%[1]s must be at most %[2]s characters",
	"oneof":      "%[1]s must be one of: %[2]s",
	"remotename": "%[1]s may only contain letters, digits, '-', '_' and '.', and must not end in .git",
	"branchname": "%[1]s is not a valid git branch name",
}

func formatValidationError(err error) string {
	var failures appValidator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(failures))
	for _, f := range failures {
		field := strings.ReplaceAll(f.Field, "_", " ")
		format, ok := validationMessages[f.Tag]
		if !ok {
			format = "%[1]s failed validation: " + f.Tag
		}
		messages = append(messages, fmt.Sprintf(format, field, strings.ReplaceAll(f.Param, " ", ", ")))
	}
	return strings.Join(messages, "; ")
}

// parseIntQuery returns fallback for a missing or non-numeric parameter.
func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
