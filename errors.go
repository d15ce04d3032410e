package main

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrResponse is the JSON body of every failed API call.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func newErrResponse(err error, status int, text string) render.Renderer {
	resp := &ErrResponse{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     text,
	}
	if err != nil {
		resp.ErrorText = err.Error()
	}
	return resp
}

func ErrInvalidRequest(err error) render.Renderer {
	return newErrResponse(err, http.StatusBadRequest, "Invalid request.")
}

func ErrUnauthorized(err error) render.Renderer {
	return newErrResponse(err, http.StatusUnauthorized, "Authentication required.")
}

func ErrPermissionDenied(err error) render.Renderer {
	return newErrResponse(err, http.StatusForbidden, "Permission denied.")
}

func ErrConflict(err error) render.Renderer {
	return newErrResponse(err, http.StatusConflict, "Conflict.")
}

func ErrRender(err error) render.Renderer {
	return newErrResponse(err, http.StatusUnprocessableEntity, "Error rendering response.")
}

// ErrDevice is returned when the board rejected or failed a write.
func ErrDevice(err error) render.Renderer {
	return newErrResponse(err, http.StatusBadGateway, "Device error.")
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}
