package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinharbor/coinharbor/internal/session"
)

func setupSessionApp(t *testing.T) (*fiber.App, session.Store) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)

	app := fiber.New()
	app.Get("/me", SessionAuth(store), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userId": c.Locals("user_id")})
	})
	return app, store
}

func TestSessionAuthRejectsMissingCookie(t *testing.T) {
	app, _ := setupSessionApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/me", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestSessionAuthRejectsUnknownSession(t *testing.T) {
	app, _ := setupSessionApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "stale"})

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestSessionAuthResolvesUser(t *testing.T) {
	app, store := setupSessionApp(t)

	sessionID, err := store.Create(context.Background(), "user-42")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sessionID})

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["userId"] != "user-42" {
		t.Fatalf("expected user-42, got %v", payload["userId"])
	}
}
