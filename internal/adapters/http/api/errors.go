package api

import (
	"errors"
	"net/http"

	"github.com/okian/ledgerboard/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPrecondition):
		return http.StatusForbidden
	case errors.Is(err, model.ErrUnknownReference):
		return http.StatusNotFound
	case errors.Is(err, model.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(op string, cause error) error {
	return &model.Error{Op: op, Kind: model.ErrInvalidArgument, Msg: "bad request: " + cause.Error(), Err: ErrBadRequest}
}
