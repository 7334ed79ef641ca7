package handlers

import (
	"testing"

	"github.com/campushub/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestRegisterAndLoginFlow(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/register", map[string]any{
		"studentID": "2023-00111",
		"email":     "maria.santos@campus.edu",
		"password":  "password123",
		"firstName": "Maria",
		"lastName":  "Santos",
		"course":    "BS Computer Science",
		"yearLevel": 3,
	}, nil)
	assertStatus(t, resp, fiber.StatusCreated)

	body := decodeJSONMap(t, resp)
	data := body["data"].(map[string]any)
	if token, _ := data["token"].(string); token == "" {
		t.Fatal("expected a token in the register response")
	}
	user := data["user"].(map[string]any)
	if user["role"] != "student" {
		t.Errorf("self-registered role = %v, want student", user["role"])
	}
	if _, ok := user["passwordHash"]; ok {
		t.Error("password hash must never be serialized")
	}

	// duplicate registration is rejected
	resp = performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/register", map[string]any{
		"studentID": "2023-00111",
		"email":     "other@campus.edu",
		"password":  "password123",
		"firstName": "Maria",
		"lastName":  "Santos",
	}, nil)
	assertStatus(t, resp, fiber.StatusConflict)

	resp = performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/login", map[string]any{
		"email":    "maria.santos@campus.edu",
		"password": "password123",
	}, nil)
	assertStatus(t, resp, fiber.StatusOK)

	body = decodeJSONMap(t, resp)
	token := body["data"].(map[string]any)["token"].(string)

	resp = performJSONRequest(t, env.app, fiber.MethodGet, "/api/auth/me", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)
	body = decodeJSONMap(t, resp)
	me := body["data"].(map[string]any)
	if me["email"] != "maria.santos@campus.edu" {
		t.Errorf("me email = %v", me["email"])
	}
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"missing student id", map[string]any{"email": "a@campus.edu", "password": "password123", "firstName": "A", "lastName": "B"}},
		{"bad email", map[string]any{"studentID": "X-1", "email": "nope", "password": "password123", "firstName": "A", "lastName": "B"}},
		{"short password", map[string]any{"studentID": "X-1", "email": "a@campus.edu", "password": "short", "firstName": "A", "lastName": "B"}},
		{"missing name", map[string]any{"studentID": "X-1", "email": "a@campus.edu", "password": "password123", "firstName": "", "lastName": "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/register", tt.payload, nil)
			assertStatus(t, resp, fiber.StatusBadRequest)
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "maria@campus.edu", "password123", models.RoleStudent)

	resp := performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/login", map[string]any{
		"email":    "maria@campus.edu",
		"password": "wrong-password",
	}, nil)
	assertStatus(t, resp, fiber.StatusUnauthorized)
	assertEnvelopeError(t, decodeJSONMap(t, resp), "invalid credentials")

	resp = performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/login", map[string]any{
		"email":    "nobody@campus.edu",
		"password": "password123",
	}, nil)
	assertStatus(t, resp, fiber.StatusUnauthorized)
}

func TestMeRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, fiber.MethodGet, "/api/auth/me", nil, nil)
	assertStatus(t, resp, fiber.StatusUnauthorized)
}

func TestUpdateMe(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "maria@campus.edu", "password123", models.RoleStudent)

	resp := performJSONRequest(t, env.app, fiber.MethodPut, "/api/auth/me", map[string]any{
		"firstName": "Maria Clara",
		"course":    "BS Biology",
		"yearLevel": 2,
	}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)

	body := decodeJSONMap(t, resp)
	data := body["data"].(map[string]any)
	if data["firstName"] != "Maria Clara" || data["course"] != "BS Biology" {
		t.Errorf("updated profile = %+v", data)
	}

	// empty update is rejected
	resp = performJSONRequest(t, env.app, fiber.MethodPut, "/api/auth/me", map[string]any{}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusBadRequest)

	// blank names are rejected
	resp = performJSONRequest(t, env.app, fiber.MethodPut, "/api/auth/me", map[string]any{
		"firstName": "  ",
	}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusBadRequest)
}

func TestChangePassword(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "maria@campus.edu", "password123", models.RoleStudent)

	// wrong old password
	resp := performJSONRequest(t, env.app, fiber.MethodPut, "/api/auth/password", map[string]any{
		"oldPassword": "nope",
		"newPassword": "newpassword123",
	}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusUnauthorized)

	resp = performJSONRequest(t, env.app, fiber.MethodPut, "/api/auth/password", map[string]any{
		"oldPassword": "password123",
		"newPassword": "newpassword123",
	}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)

	// old password no longer works
	resp = performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/login", map[string]any{
		"email":    "maria@campus.edu",
		"password": "password123",
	}, nil)
	assertStatus(t, resp, fiber.StatusUnauthorized)

	resp = performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/login", map[string]any{
		"email":    "maria@campus.edu",
		"password": "newpassword123",
	}, nil)
	assertStatus(t, resp, fiber.StatusOK)
}
