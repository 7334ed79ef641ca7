package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func setupResponseTestApp() *fiber.App {
	app := fiber.New()

	app.Get("/success", func(c *fiber.Ctx) error {
		return Success(c, fiber.StatusCreated, fiber.Map{"id": "123"})
	})

	app.Get("/error", func(c *fiber.Ctx) error {
		return Error(c, fiber.StatusBadRequest, "invalid input")
	})

	app.Get("/rejected", func(c *fiber.Ctx) error {
		return Rejected(c, fiber.StatusConflict, "already-voted")
	})

	app.Get("/paginated", func(c *fiber.Ctx) error {
		return Paginated(c, []string{"a", "b"}, 2, 20, 45)
	})

	return app
}

func performResponseTestRequest(t *testing.T, app *fiber.App, path string) map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed decoding %s response body: %v", path, err)
	}

	body["_statusCode"] = float64(resp.StatusCode)
	return body
}

func TestSuccessEnvelope(t *testing.T) {
	app := setupResponseTestApp()
	body := performResponseTestRequest(t, app, "/success")

	if body["_statusCode"].(float64) != fiber.StatusCreated {
		t.Fatalf("expected status %d, got %v", fiber.StatusCreated, body["_statusCode"])
	}
	if body["success"] != true {
		t.Fatalf("expected success=true, got %+v", body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok || data["id"] != "123" {
		t.Fatalf("expected data payload with id, got %+v", body["data"])
	}
}

func TestErrorEnvelope(t *testing.T) {
	app := setupResponseTestApp()
	body := performResponseTestRequest(t, app, "/error")

	if body["_statusCode"].(float64) != fiber.StatusBadRequest {
		t.Fatalf("expected status %d, got %v", fiber.StatusBadRequest, body["_statusCode"])
	}
	if body["success"] != false {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if body["error"] != "invalid input" {
		t.Fatalf("expected error message, got %+v", body["error"])
	}
}

func TestRejectedEnvelopeCarriesReasonCode(t *testing.T) {
	app := setupResponseTestApp()
	body := performResponseTestRequest(t, app, "/rejected")

	if body["_statusCode"].(float64) != fiber.StatusConflict {
		t.Fatalf("expected status %d, got %v", fiber.StatusConflict, body["_statusCode"])
	}
	if body["success"] != false {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if body["reason"] != "already-voted" || body["error"] != "already-voted" {
		t.Fatalf("expected reason code in both fields, got %+v", body)
	}
}

func TestPaginatedEnvelope(t *testing.T) {
	app := setupResponseTestApp()
	body := performResponseTestRequest(t, app, "/paginated")

	if body["success"] != true {
		t.Fatalf("expected success=true, got %+v", body)
	}
	items, ok := body["data"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", body["data"])
	}

	pagination, ok := body["pagination"].(map[string]any)
	if !ok {
		t.Fatalf("expected pagination block, got %+v", body)
	}
	if pagination["page"].(float64) != 2 || pagination["limit"].(float64) != 20 {
		t.Fatalf("unexpected pagination %+v", pagination)
	}
	if pagination["total"].(float64) != 45 || pagination["totalPages"].(float64) != 3 {
		t.Fatalf("unexpected totals %+v", pagination)
	}
}
