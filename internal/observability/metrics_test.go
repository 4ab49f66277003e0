package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/brief/:id", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/brief/:id", "GET", 200, 30*time.Millisecond)
	m.RecordError("/brief/:id", "GET", "NOT_FOUND")
	m.RecordEmail(true)
	m.RecordEmail(false)
	m.RecordEmail(false)

	snap := m.Snapshot()
	stat := snap.Requests["/brief/:id|GET|200"]
	if stat.Count != 2 || stat.AvgLatencyMs != 20 {
		t.Errorf("stat = %+v", stat)
	}
	if snap.Errors["/brief/:id|GET|NOT_FOUND"] != 1 {
		t.Errorf("errors = %v", snap.Errors)
	}
	if snap.EmailsSent != 1 || snap.EmailsFailed != 2 {
		t.Errorf("emails = %d/%d", snap.EmailsSent, snap.EmailsFailed)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordEmail(true)
	if snap := m.Snapshot(); snap.Requests == nil || snap.Errors == nil {
		t.Error("nil snapshot maps")
	}
}

func TestRequestLogger_KeysByRoutePattern(t *testing.T) {
	m := NewMetrics()
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/brief/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "missing" {
			return apperrors.NewNotFound("Brief", nil)
		}
		return c.SendString("ok")
	})

	for _, path := range []string{"/brief/a", "/brief/b", "/brief/missing"} {
		if _, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil)); err != nil {
			t.Fatal(err)
		}
	}

	snap := m.Snapshot()
	if got := snap.Requests["/brief/:id|GET|200"].Count; got != 2 {
		t.Errorf("200 count = %d", got)
	}
	if got := snap.Requests["/brief/:id|GET|404"].Count; got != 1 {
		t.Errorf("404 count = %d (requests %v)", got, snap.Requests)
	}
}

func TestErrorStatus(t *testing.T) {
	if got := errorStatus(fiber.ErrMethodNotAllowed); got != http.StatusMethodNotAllowed {
		t.Errorf("fiber error = %d", got)
	}
	if got := errorStatus(apperrors.NewConflict("busy", nil)); got != http.StatusConflict {
		t.Errorf("domain error = %d", got)
	}
	if got := errorStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("plain error = %d", got)
	}
}
