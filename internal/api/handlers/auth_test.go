package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"chat-relay-service/internal/models"
)

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// Registers an account, logs in, and uses the returned token to open an
// authenticated relay connection.
func TestRegisterLoginConnect(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/auth/register",
		`{"username":"bob","email":"bob@relay.local","password":"secret123"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	var created models.AccountResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if created.Username != "bob" || created.ID == 0 {
		t.Fatalf("register response = %+v", created)
	}

	resp = postJSON(t, server.URL+"/auth/login",
		`{"email":"bob@relay.local","password":"secret123"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	var login models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	conn := dial(t, server, "?token="+login.Token)
	welcome := readEvent(t, conn)
	if !strings.Contains(welcome.Content, "bob") {
		t.Errorf("welcome %q should name bob", welcome.Content)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	server, _ := newTestServer(t)

	body := `{"username":"bob","email":"bob@relay.local","password":"secret123"}`
	if resp := postJSON(t, server.URL+"/auth/register", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register status = %d, want 201", resp.StatusCode)
	}
	if resp := postJSON(t, server.URL+"/auth/register", body); resp.StatusCode != http.StatusConflict {
		t.Errorf("second register status = %d, want 409", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	server, _ := newTestServer(t)

	for _, body := range []string{
		`{"username":"bob"}`,
		`{"username":"bob","email":"not-an-email","password":"secret123"}`,
		`{"username":"bob","email":"bob@relay.local","password":"short"}`,
		`not json`,
	} {
		if resp := postJSON(t, server.URL+"/auth/register", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("register %s status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestLoginBadCredentials(t *testing.T) {
	server, _ := newTestServer(t)

	// alice is seeded in the stub store without a usable password hash
	resp := postJSON(t, server.URL+"/auth/login",
		`{"email":"alice@relay.local","password":"whatever"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/auth/login",
		`{"email":"ghost@relay.local","password":"whatever"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unknown email login status = %d, want 401", resp.StatusCode)
	}
}
