package response

import (
	"encoding/json"
	"net/http"
	"rental/shared"
	"rental/shared/constant"
	"rental/shared/dto"
	"rental/shared/failure"
	"rental/shared/logger"
)

type Data[T any] struct {
	Data *T `json:"data,omitempty"`
}

// Error is the body of every failed request. Kind tells lifecycle failures apart from each other
// and Fields lists the request fields a validation failure rejected.
type Error struct {
	Error  *string      `json:"error,omitempty"`
	Kind   failure.Kind `json:"kind,omitempty"`
	Fields []string     `json:"fields,omitempty"`
}

// Meta describes the page a paginated response carries.
type Meta struct {
	Page      int `json:"page"`
	Limit     int `json:"limit"`
	TotalPage int `json:"totalPage"`
	TotalData int `json:"totalData"`
}

type Paginated[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}

type Message struct {
	Message *string `json:"message,omitempty"`
}

// WithMessage sends a response with a simple text message
func WithMessage(writer http.ResponseWriter, code int, message string) {
	response(writer, code, Message{Message: &message})
}

// WithJSON sends a response containing a JSON object
func WithJSON(writer http.ResponseWriter, code int, jsonPayload any) {
	response(writer, code, Data[any]{Data: &jsonPayload})
}

// WithPaginated sends one page of items together with its paging metadata.
func WithPaginated[T any](writer http.ResponseWriter, items []T, params dto.QueryParams) {
	total := len(items)
	start := min(params.Offset(), total)
	end := min(start+params.Limit, total)

	response(writer, http.StatusOK, Paginated[T]{
		Data: items[start:end],
		Meta: Meta{
			Page:      params.Page,
			Limit:     params.Limit,
			TotalPage: shared.CalculateTotalPage(total, params.Limit),
			TotalData: total,
		},
	})
}

// WithError sends a response with an error message, its kind and the offending fields.
func WithError(writer http.ResponseWriter, err error) {
	errMsg := err.Error()
	body := Error{Error: &errMsg, Kind: failure.GetKind(err)}

	if fail, ok := failure.As(err); ok {
		body.Fields = fail.Fields
	}

	response(writer, failure.GetCode(err), body)
}

// WithRequestLimitExceeded sends a default response for when the request limit is exceeded
func WithRequestLimitExceeded(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusTooManyRequests, constant.ResponseErrorRequestLimitExceeded)
}

// WithPreparingShutdown sends a default response for when the server is preparing to shut down
func WithPreparingShutdown(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorPrepareShutdown)
}

// WithUnhealthy sends a default response for when the server is unhealthy
func WithUnhealthy(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorUnhealthy)
}

func response(writer http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithStack(err)

		return
	}

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	writer.WriteHeader(code)
	_, err = writer.Write(response)

	if err != nil {
		logger.ErrorWithStack(err)
	}
}
