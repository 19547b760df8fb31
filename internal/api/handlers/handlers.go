// Package handlers contains the HTTP endpoint implementations. Handlers
// decode and validate request bodies, call the domain services, and write
// responses through the respond package.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decodeBody reads a JSON body into dst and runs struct validation. All
// failures map to a 400 with a field-level message.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperr.Validation(fieldMessage(fieldErrs[0]))
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid e-mail address", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(key), 10, 64)
	if err != nil {
		return 0, apperr.Validation(fmt.Sprintf("invalid %s", key))
	}
	return id, nil
}

func queryInt64(r *http.Request, key string) (*int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("invalid %s", key))
	}
	return &v, nil
}

func queryInt32(r *http.Request, key string) (*int32, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("invalid %s", key))
	}
	v32 := int32(v)
	return &v32, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Validation(fmt.Sprintf("invalid %s", key))
	}
	return v, nil
}
