package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Respond writes err as a JSON error response. Domain errors carry their kind
// and field detail; anything else is an opaque 500.
func Respond(c echo.Context, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	body := map[string]interface{}{
		"error": e.Message,
		"code":  e.Kind.String(),
	}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	if e.Kind == KindBlockedByActiveRelations {
		body["active_relations"] = e.BlockingCount
	}
	return c.JSON(HTTPStatus(err), body)
}
