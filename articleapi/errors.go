package articleapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// ErrResponse is the renderer for every client-visible failure. NotFound is a
// valid outcome for lookups, authorization failures never mutate state, and
// validation failures are rejected before any store call.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	Message string `json:"message"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		Message:        err.Error(),
	}
}

func ErrArticleNotFound(id string) render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusNotFound,
		Message:        fmt.Sprintf("article %q not found", id),
	}
}

func ErrForbidden() render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusForbidden,
		Message:        "caller is not the article referrer",
	}
}

func ErrUnauthorized() render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusUnauthorized,
		Message:        "a verified identity is required",
	}
}

func ErrInternal(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		Message:        "internal error",
	}
}
