package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"volunteerhub/api/internal/models"
	"volunteerhub/api/internal/repository"
	"volunteerhub/api/internal/security"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = repository.ErrDuplicateEmail
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError is a client fault with a message fit for the response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type AuthService struct {
	credentials *Credentials
	tokens      *security.TokenIssuer
	log         zerolog.Logger
}

func NewAuthService(credentials *Credentials, tokens *security.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		credentials: credentials,
		tokens:      tokens,
		log:         log,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an account. It does not sign the user in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	if blank(input.Name) || blank(input.Email) || input.Password == "" {
		return models.User{}, &ValidationError{Message: "Please provide name, email and password"}
	}

	user, err := s.credentials.Create(ctx, input.Name, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.log.Info().Msg("registration rejected: email taken")
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user.WithoutPasswordHash(), nil
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

// Login checks the password and mints a bearer token. Unknown email and wrong
// password both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	if blank(input.Email) || input.Password == "" {
		return LoginResult{}, &ValidationError{Message: "Please provide email and password"}
	}

	user, err := s.credentials.FindByEmail(ctx, input.Email, repository.WithPasswordHash())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			if err := s.credentials.VerifyDecoy(ctx, input.Password); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("decoy password check failed")
			}
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	ok, err := s.credentials.Verify(ctx, user, input.Password)
	if err != nil {
		if ctx.Err() != nil {
			return LoginResult{}, err
		}
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok {
		s.log.Info().Str("user_id", user.ID).Msg("login rejected")
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return LoginResult{
		User:      user.WithoutPasswordHash(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
