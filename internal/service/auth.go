package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"github.com/beanvault/beanvault/internal/domain"
	"github.com/beanvault/beanvault/jwt"
)

var tracer = otel.Tracer("auth")

// UserRepository defines lookup for local credential accounts.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Get(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
}

// AuthService validates bearer tokens and runs the local credentials
// provider. It also implements the authorization gate the usecases consume.
type AuthService struct {
	config domain.Config
	users  UserRepository
}

func NewAuthService(config domain.Config, users UserRepository) *AuthService {
	return &AuthService{
		config: config,
		users:  users,
	}
}

type AuthResult struct {
	UserID string
	Email  string
}

// AuthJwt validates a bearer token and returns the requester identity.
func (s *AuthService) AuthJwt(ctx context.Context, token string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	_, claims, err := jwt.Validate(token, s.config.Auth.JwtSecret)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return nil, err
	}

	if claims.Audience != s.config.Auth.Audience {
		err := fmt.Errorf("jwt audience mismatch: expected %s, got %s", s.config.Auth.Audience, claims.Audience)
		span.RecordError(err)
		return nil, err
	}

	if claims.Subject == "" {
		err := fmt.Errorf("jwt subject missing")
		span.RecordError(err)
		return nil, err
	}

	user, err := s.users.Get(ctx, claims.Subject)
	if err != nil {
		span.RecordError(errors.Wrap(err, "unknown subject"))
		return nil, err
	}

	return &AuthResult{UserID: user.ID, Email: user.Email}, nil
}

// Login checks local credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, domain.User, time.Time, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return "", domain.User{}, time.Time{}, domain.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		span.RecordError(err)
		return "", domain.User{}, time.Time{}, domain.ErrUnauthorized
	}

	expires := time.Now().Add(s.config.Auth.TokenTTL)
	token, err := jwt.Create(jwt.Claims{
		Issuer:         s.config.ServiceName,
		Subject:        user.ID,
		Audience:       s.config.Auth.Audience,
		ExpirationTime: strconv.FormatInt(expires.Unix(), 10),
		IssuedAt:       strconv.FormatInt(time.Now().Unix(), 10),
	}, s.config.Auth.JwtSecret)
	if err != nil {
		span.RecordError(err)
		return "", domain.User{}, time.Time{}, err
	}

	return token, user, expires, nil
}

// Register creates a local credentials account.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	return s.users.Create(ctx, domain.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	})
}

// IsAuthorized reports whether the request context carries a requester.
func (s *AuthService) IsAuthorized(ctx context.Context) bool {
	return s.ActorID(ctx) != ""
}

// ActorID returns the requester ID set by the auth middleware.
func (s *AuthService) ActorID(ctx context.Context) string {
	id, _ := ctx.Value(domain.RequesterIDCtxKey).(string)
	return id
}
