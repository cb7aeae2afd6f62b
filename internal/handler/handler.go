package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"liftcart/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies; checkout payloads are the largest.
const maxBodyBytes = 1 << 20

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// InventoryErrorResponse is an error response that itemizes stock shortfalls.
type InventoryErrorResponse struct {
	model.ErrorResponse
	Issues []model.InventoryIssue `json:"issues"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Top-level request fields whose validation failures carry a domain code.
var fieldCodes = map[string]string{
	"quantity":        model.ErrCodeInvalidQuantity,
	"paymentMethod":   model.ErrCodeInvalidPaymentMethod,
	"shippingAddress": model.ErrCodeInvalidAddress,
	"billingAddress":  model.ErrCodeInvalidAddress,
	"contact":         model.ErrCodeInvalidContact,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessResponse{Success: true, Data: data})
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message, code string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error", message).Str("code", code).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Success: false, Error: message, Code: code})
}

// writeServiceError maps service errors onto the response envelope. Domain
// errors keep their message; anything else is reported generically.
func writeServiceError(w http.ResponseWriter, err error, fallback string, logger zerolog.Logger) {
	var invErr *model.InventoryError
	if errors.As(err, &invErr) {
		logger.Warn().Int("issues", len(invErr.Issues)).Msg("insufficient inventory")
		writeJSON(w, http.StatusConflict, InventoryErrorResponse{
			ErrorResponse: model.ErrorResponse{Success: false, Error: invErr.Error(), Code: invErr.Code()},
			Issues:        invErr.Issues,
		})
		return
	}

	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		writeError(w, statusForCode(domainErr.Code), domainErr.Message, domainErr.Code, logger)
		return
	}

	logger.Error().Err(err).Msg(fallback)
	writeError(w, http.StatusInternalServerError, fallback, model.ErrCodeInternalError, logger)
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeCartNotFound, model.ErrCodeCartItemNotFound,
		model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeCartChanged, model.ErrCodeCartCompleted:
		return http.StatusConflict
	case model.ErrCodePaymentUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON decodes and validates a request body. The returned error is
// always a *model.DomainError safe to show the caller.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *model.DomainError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewDomainError(model.ErrCodeValidation, "invalid request")
	}

	fe := fieldErrs[0]
	// Namespace is "<Struct>.<field>[.<nested>]"
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	top, _, _ := strings.Cut(field, ".")

	code, ok := fieldCodes[top]
	if !ok {
		code = model.ErrCodeValidation
		if fe.Tag() == "required" {
			code = model.ErrCodeMissingField
		}
	}

	switch fe.Tag() {
	case "required":
		return model.NewDomainError(code, fmt.Sprintf("%s is required", field))
	case "oneof":
		return model.NewDomainError(code, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
	case "gt", "min":
		return model.NewDomainError(code, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
	case "max":
		return model.NewDomainError(code, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	case "email":
		return model.NewDomainError(code, fmt.Sprintf("%s must be a valid email address", field))
	default:
		return model.NewDomainError(code, fmt.Sprintf("%s is invalid", field))
	}
}

// parsePagination reads limit and offset query parameters.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return 0, 0, errors.New("invalid limit parameter")
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil {
			return 0, 0, errors.New("invalid offset parameter")
		}
	}
	return limit, offset, nil
}
