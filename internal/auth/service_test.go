package auth

import (
	"errors"
	"testing"
	"time"

	"chat-relay-service/internal/models"

	"golang.org/x/crypto/bcrypt"
)

type memoryStore struct {
	byEmail map[string]*models.Account
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byEmail: make(map[string]*models.Account)}
}

func (m *memoryStore) Create(account *models.Account) error {
	if _, ok := m.byEmail[account.Email]; ok {
		return errors.New("email already exists")
	}
	account.ID = uint(len(m.byEmail) + 1)
	m.byEmail[account.Email] = account
	return nil
}

func (m *memoryStore) FindByEmail(email string) (*models.Account, error) {
	account, ok := m.byEmail[email]
	if !ok {
		return nil, errors.New("account not found")
	}
	return account, nil
}

func TestRegisterHashesPassword(t *testing.T) {
	service := NewService(newMemoryStore(), testSecret, time.Hour)

	account, err := service.Register(models.RegisterRequest{
		Username: "bob",
		Email:    "bob@relay.local",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.Password == "secret123" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte("secret123")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	service := NewService(newMemoryStore(), testSecret, time.Hour)
	if _, err := service.Register(models.RegisterRequest{
		Username: "bob",
		Email:    "bob@relay.local",
		Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp, err := service.Login(models.LoginRequest{Email: "bob@relay.local", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	principal, err := NewVerifier(testSecret).Verify(resp.Token, KindAccess)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if principal.Email != "bob@relay.local" {
		t.Errorf("principal email = %q, want bob@relay.local", principal.Email)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	service := NewService(newMemoryStore(), testSecret, time.Hour)
	if _, err := service.Register(models.RegisterRequest{
		Username: "bob",
		Email:    "bob@relay.local",
		Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := service.Login(models.LoginRequest{Email: "bob@relay.local", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.Login(models.LoginRequest{Email: "ghost@relay.local", Password: "secret123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}
