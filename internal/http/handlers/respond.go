package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	middlewarex "saralpe/internal/http/middleware"
	"saralpe/internal/provider"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names, not Go ones
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// decodeValid reads a JSON body into v and validates it. On failure the
// response is already written and false is returned.
func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad json", "error": err.Error()})
		return false
	}

	err := validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid request", "error": err.Error()})
		return false
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], ruleMessage(fe))
	}
	writeJSON(w, http.StatusUnprocessableEntity, fields)
	return false
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "The " + fe.Field() + " field is required."
	case "email":
		return "The " + fe.Field() + " field must be a valid email address."
	case "gte":
		return "The " + fe.Field() + " field must be at least " + fe.Param() + "."
	case "lte":
		return "The " + fe.Field() + " field must not be greater than " + fe.Param() + "."
	case "oneof":
		return "The selected " + fe.Field() + " is invalid."
	case "datetime":
		return "The " + fe.Field() + " field must be a valid date."
	default:
		return "The " + fe.Field() + " field is invalid."
	}
}

// writeResult maps a gateway result onto the response envelope. message is
// used for successful results only.
func writeResult(w http.ResponseWriter, message string, res provider.Result) {
	switch res.Outcome {
	case provider.OutcomeSuccess:
		writeJSON(w, http.StatusOK, map[string]any{"message": message, "data": res.Body})
	case provider.OutcomeAuthFailure:
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Authentication failed"})
	case provider.OutcomeRequestFailure:
		status := res.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		errBody := res.Body
		if errBody == nil {
			errBody = res.ErrorDetail
		}
		writeJSON(w, status, map[string]any{"message": "Request failed", "error": errBody})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "An error occurred during the API request",
			"error":   res.ErrorDetail,
		})
	}
}

// merchantFor picks the body mid, else the one set by MerchantContext.
func merchantFor(r *http.Request, bodyMID string) string {
	if bodyMID != "" {
		return bodyMID
	}
	mid, _ := middlewarex.MerchantID(r.Context())
	return mid
}
