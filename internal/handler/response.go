package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/middleware"
	"github.com/tiffinbox/tiffin-service/internal/repository"
	"github.com/tiffinbox/tiffin-service/internal/service"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// listData is the data of a paginated list.
type listData struct {
	Items any                 `json:"items"`
	Meta  repository.PageMeta `json:"meta"`
}

func ok(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, envelope{Message: msg, Error: string(service.KindInvalidInput)})
}

// statusOf maps an error kind to the HTTP status it is reported with.
func statusOf(k service.Kind) int {
	switch k {
	case service.KindUnclaimedUser, service.KindOrderNotFound, service.KindTeamNotFound,
		service.KindAddressNotFound, service.KindAccountNotFound, service.KindMembershipNotFound,
		service.KindLeaderNotFound, service.KindSupplierNotFound:
		return http.StatusNotFound
	case service.KindOrderAlreadyExists, service.KindLeaderAlreadyLeading, service.KindDuplicateTeamName,
		service.KindAccountAlreadyClaimed, service.KindSupplierExists, service.KindAddressExists,
		service.KindPhoneExists:
		return http.StatusConflict
	case service.KindInvalidCredentials:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindPersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// fail writes err as a failure envelope.  Business errors carry their own
// message; anything else is logged and reported as an internal error.
func fail(c echo.Context, log logrus.FieldLogger, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		status := statusOf(se.Kind)
		if status == http.StatusInternalServerError {
			log.WithError(err).WithField("route", c.Path()).Error("request failed")
		}
		return c.JSON(status, envelope{Message: se.Message, Error: string(se.Kind)})
	}
	if errors.Is(err, repository.ErrInvalidFilter) {
		return badRequest(c, err.Error())
	}
	log.WithError(err).WithField("route", c.Path()).Error("request failed")
	return c.JSON(http.StatusInternalServerError, envelope{
		Message: "internal server error",
		Error:   string(service.KindPersistenceFailure),
	})
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// caller returns the authenticated account id.  Routes using it sit behind
// JWTAuth, so a missing id is a wiring error.
func caller(c echo.Context) uint64 {
	id, _ := middleware.UserID(c)
	return id
}

func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// parseDay reads a day from s, defaulting to today when empty.
func parseDay(s string, clk clock.Clock) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return clock.Today(clk), nil
	}
	return clock.ParseDay(s)
}

// parseMonth reads "YYYY-MM"; empty means no month.
func parseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01", s)
}
