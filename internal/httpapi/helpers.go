package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hmkang/maieut/internal/session"
)

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func internalError(c echo.Context, err error) error {
	c.Logger().Errorf("request failed: %v", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// teacherKey extracts the caller's teacher key or fails with 401.
func teacherKey(c echo.Context) (string, error) {
	key := c.Request().Header.Get(teacherKeyHeader)
	if key == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, teacherKeyHeader+" header is required")
	}
	return key, nil
}

// sessionError maps service errors to HTTP status codes.
func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrStudentNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrSessionInactive):
		return c.JSON(http.StatusGone, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrSessionFull):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrForbidden):
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		return internalError(c, err)
	}
}
