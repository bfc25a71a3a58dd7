package auth

import (
	"context"
	"errors"
	"time"

	"lv-papertrade/internal/account"
	"lv-papertrade/internal/ledger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	users           *account.Store
	ledger          *ledger.Ledger
	issuer          string
	secret          []byte
	ttl             time.Duration
	startingBalance decimal.Decimal
}

func NewService(users *account.Store, l *ledger.Ledger, issuer string, secret []byte, ttl time.Duration, startingBalance decimal.Decimal) *Service {
	return &Service{
		users:           users,
		ledger:          l,
		issuer:          issuer,
		secret:          secret,
		ttl:             ttl,
		startingBalance: startingBalance,
	}
}

// Register creates the user and seeds their trading account with the
// configured starting balance.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (account.User, error) {
	if email == "" || password == "" {
		return account.User{}, errors.New("email and password required")
	}
	if len(password) < 8 {
		return account.User{}, errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return account.User{}, err
	}
	u, err := s.users.Create(email, fullName, string(hash), false)
	if err != nil {
		return account.User{}, err
	}
	s.ledger.EnsureAccount(ctx, u.ID, s.startingBalance)
	return u, nil
}

// RegisterAdmin is used at startup to seed the configured admin user.
// Re-running against an existing email is not an error.
func (s *Service) RegisterAdmin(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u, err := s.users.Create(email, "Admin", string(hash), true)
	if err != nil {
		if errors.Is(err, account.ErrEmailExists) {
			return nil
		}
		return err
	}
	s.ledger.EnsureAccount(ctx, u.ID, s.startingBalance)
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(email)
	if err != nil {
		return "", errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}
	return s.signToken(u.ID)
}

func (s *Service) GetUser(userID string) (account.User, error) {
	return s.users.GetByID(userID)
}

func (s *Service) IsAdmin(userID string) bool {
	u, err := s.users.GetByID(userID)
	return err == nil && u.IsAdmin
}

func (s *Service) signToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Issuer != s.issuer {
		return "", errors.New("invalid issuer")
	}
	if claims.Subject == "" {
		return "", errors.New("invalid subject")
	}
	return claims.Subject, nil
}
