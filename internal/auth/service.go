package auth

import (
	"errors"
	"time"

	"chat-relay-service/internal/models"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountStore is the slice of the account repository the auth service needs.
type AccountStore interface {
	Create(account *models.Account) error
	FindByEmail(email string) (*models.Account, error)
}

// Service handles registration and login. Tokens it issues are the access
// tokens the websocket endpoint verifies.
type Service struct {
	store     AccountStore
	jwtSecret string
	jwtExpire time.Duration
}

func NewService(store AccountStore, secret string, expire time.Duration) *Service {
	return &Service{
		store:     store,
		jwtSecret: secret,
		jwtExpire: expire,
	}
}

// Register hashes the password and persists a new account.
func (s *Service) Register(req models.RegisterRequest) (*models.Account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := s.store.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login checks the credentials and returns a signed access token. Unknown
// emails and wrong passwords both come back as ErrInvalidCredentials so the
// response never reveals which half failed.
func (s *Service) Login(req models.LoginRequest) (*models.LoginResponse, error) {
	account, err := s.store.FindByEmail(req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := IssueAccessToken(s.jwtSecret, account.Email, s.jwtExpire)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token}, nil
}
