// Package response задаёт JSON-конверт, в котором API трекера отдаёт
// данные и ошибки, и переводит ошибки validator в читаемый текст.
package response

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Значения поля status.
const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response — конверт любого ответа. Error заполняется при неуспехе, Data при успехе.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — форма ответа с ошибкой для аннотаций @Failure.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

// StatusOKWithData заворачивает data в успешный ответ.
func StatusOKWithData(data any) Response {
	return Response{Status: StatusOK, Data: data}
}

// Error заворачивает текст ошибки в ответ со статусом Error.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Error: msg}
}

// fieldMessages — шаблоны сообщений для используемых тегов валидации.
// Первый %s подставляется именем поля, второй параметром тега.
var fieldMessages = map[string]string{
	"required":         "%s is required",
	"required_without": "%s is required when service_id is empty",
	"oneof":            "%s must be one of: %s",
	"gte":              "%s must be at least %s",
	"lte":              "%s must be at most %s",
	"len":              "%s must be exactly %s characters",
	"max":              "%s must be at most %s characters",
	"datetime":         "%s must match layout %s",
}

// ValidationError формирует Response со статусом Error из ошибки валидатора.
// Нарушения перечисляются через "; " в порядке полей структуры.
func ValidationError(err error) Response {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Response{Status: StatusError, Error: "invalid request"}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		tmpl, ok := fieldMessages[fe.Tag()]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
			continue
		}
		if strings.Count(tmpl, "%s") == 2 {
			msgs = append(msgs, fmt.Sprintf(tmpl, fe.Field(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf(tmpl, fe.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(msgs, "; "),
	}
}
