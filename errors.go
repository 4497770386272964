package blog

import (
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jinukeu/blog/content"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string   `json:"error"`
	UsedIn []string `json:"usedIn,omitempty"`
}

var badRequestErrors = []error{
	content.ErrInvalidSlug,
	content.ErrUnknownCategory,
	content.ErrUnsupportedLocale,
	content.ErrInvalidName,
	content.ErrInvalidKind,
}

func isBadRequest(err error) bool {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	var verrs validation.Errors
	return errors.As(err, &verrs)
}

// statusFor maps repository and validation errors to HTTP status codes.
func statusFor(err error) int {
	var (
		he    *echo.HTTPError
		inUse *content.CategoryInUseError
	)
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &inUse), errors.Is(err, content.ErrCategoryExists):
		return http.StatusConflict
	case isBadRequest(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) (int, errorBody) {
	code := statusFor(err)

	var (
		he    *echo.HTTPError
		inUse *content.CategoryInUseError
	)
	switch {
	case errors.As(err, &inUse):
		return code, errorBody{
			Error:  fmt.Sprintf("category is in use by %d document(s)", len(inUse.UsedIn)),
			UsedIn: inUse.UsedIn,
		}
	case errors.As(err, &he):
		return code, errorBody{Error: fmt.Sprint(he.Message)}
	case code >= http.StatusInternalServerError:
		return code, errorBody{Error: http.StatusText(code)}
	default:
		return code, errorBody{Error: err.Error()}
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, body := errorResponse(err)
	if code >= http.StatusInternalServerError {
		a.Logger.Error("server error",
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}
