package misc

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/jsonapi"
	"github.com/pkg/errors"

	"mutolaa/internal/model"
)

func ReturnError(ctx *gin.Context, status int, title string, code string, detail string) {
	ctx.Header("Content-Type", jsonapi.MediaType)
	ctx.Status(status)
	if err := jsonapi.MarshalErrors(ctx.Writer, []*jsonapi.ErrorObject{{
		Title:  title,
		Code:   code,
		Status: strconv.Itoa(status),
		Detail: detail,
	}}); err != nil {
		http.Error(ctx.Writer, err.Error(), http.StatusInternalServerError)
	}
	ctx.Abort()
}

func ReturnStandardError(ctx *gin.Context, status int, detail string) {
	switch status {
	case http.StatusUnauthorized:
		ReturnError(ctx, status, "admin key is missing or invalid", "error.unauthorized", detail)
	case http.StatusBadRequest:
		ReturnError(ctx, status, "errors occurred when processing request", "error.bad_request", detail)
	case http.StatusForbidden:
		ReturnError(ctx, status, "you are not allowed to perform this action", "error.forbidden", detail)
	case http.StatusNotFound:
		ReturnError(ctx, status, "requested or related resources cannot be found", "error.not_found", detail)
	case http.StatusBadGateway:
		ReturnError(ctx, status, "an upstream service did not respond", "error.upstream", detail)
	default:
		ReturnError(ctx, http.StatusInternalServerError, "something unexpected happened at the server side", "error.internal", detail)
	}
}

// StatusOf maps a model error to the HTTP status returned for it
func StatusOf(err error) int {
	switch {
	case model.IsValidation(err):
		return http.StatusBadRequest
	case model.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, model.ErrBanned):
		return http.StatusForbidden
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ReturnModelError answers with the status matching err. Internal errors are
// attached to the context for the request logger and not shown to the client.
func ReturnModelError(ctx *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		ctx.Error(err)
		ReturnStandardError(ctx, status, "internal error")
		return
	}
	ReturnStandardError(ctx, status, err.Error())
}
