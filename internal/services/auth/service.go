package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/academictracker/api/internal/audit"
	"github.com/academictracker/api/internal/config"
	"github.com/academictracker/api/internal/oauth/state"
	"github.com/academictracker/api/internal/password"
	googleprovider "github.com/academictracker/api/internal/providers/google"
	"github.com/academictracker/api/internal/store"
	"github.com/academictracker/api/internal/token"
	"github.com/academictracker/api/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials returned when login fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailAlreadyExists indicates duplicate registration.
	ErrEmailAlreadyExists = errors.New("user with email already exists")
	// ErrProviderNotEnabled indicates the requested OAuth provider is disabled.
	ErrProviderNotEnabled = errors.New("oauth provider not enabled")
	// ErrOAuthStateInvalid indicates malformed or expired state payload.
	ErrOAuthStateInvalid = errors.New("oauth state invalid")
	// ErrEmailNotVerified indicates provider did not verify the email address.
	ErrEmailNotVerified = errors.New("provider email not verified")
)

const oauthStateTTL = 10 * time.Minute

// UserRepository is the persistence surface used by the auth flows.
type UserRepository interface {
	Create(ctx context.Context, u *store.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*store.User, error)
	GetByEmail(ctx context.Context, email string) (*store.User, error)
	GetByGoogleSubject(ctx context.Context, subject string) (*store.User, error)
	LinkGoogle(ctx context.Context, id uuid.UUID, subject string) error
}

// TokenService mints access tokens.
type TokenService interface {
	MintAccessToken(input token.AccessTokenInput) (string, time.Time, error)
}

// Revoker invalidates access tokens before expiry.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
}

// GoogleProvider is the subset of the Google OAuth client used here.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	Authenticate(ctx context.Context, code string) (*googleprovider.Profile, error)
}

// Service encapsulates core authentication flows.
type Service struct {
	users    UserRepository
	tokenSvc TokenService
	hasher   *password.Hasher
	revoker  Revoker
	auditor  *audit.Logger
	logger   *zap.Logger
	google   GoogleProvider
	security config.SecurityConfig
}

// Dependencies aggregates constructor inputs.
type Dependencies struct {
	Users    UserRepository
	TokenSvc TokenService
	Hasher   *password.Hasher
	Revoker  Revoker
	Auditor  *audit.Logger
	Logger   *zap.Logger
	Google   GoogleProvider
	Security config.SecurityConfig
}

// New initialises the auth service.
func New(deps Dependencies) *Service {
	return &Service{
		users:    deps.Users,
		tokenSvc: deps.TokenSvc,
		hasher:   deps.Hasher,
		revoker:  deps.Revoker,
		auditor:  deps.Auditor,
		logger:   deps.Logger,
		google:   deps.Google,
		security: deps.Security,
	}
}

// SignupInput captures registration payload.
type SignupInput struct {
	Name      string
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginInput captures login payload.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// OAuthCallbackInput defines provider callback payload.
type OAuthCallbackInput struct {
	Code      string
	State     string
	IPAddress string
	UserAgent string
}

// AuthResult returned to caller.
type AuthResult struct {
	User        *store.User
	AccessToken string
	ExpiresAt   time.Time
	RedirectTo  string
}

// Signup creates a new user and returns an access token.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	errs := validation.Errors{}
	for _, err := range []error{
		validation.Var("name", name, "required,max=100"),
		validation.Var("email", email, "required,email"),
		validation.Var("password", in.Password, fmt.Sprintf("min=%d", s.security.PasswordMinLength)),
	} {
		if err := errs.Merge(err); err != nil {
			return nil, err
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &store.User{Name: name, Email: email, PasswordHash: &hashed}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{UserID: &user.ID, Action: "auth.signup", IPAddress: in.IPAddress, UserAgent: in.UserAgent})
	return s.issue(user)
}

// Login authenticates a user with email and password.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(*user.PasswordHash, in.Password); err != nil {
		s.auditor.Record(ctx, audit.Entry{UserID: &user.ID, Action: "auth.login_failed", IPAddress: in.IPAddress, UserAgent: in.UserAgent})
		if errors.Is(err, password.ErrMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{UserID: &user.ID, Action: "auth.login", IPAddress: in.IPAddress, UserAgent: in.UserAgent})
	return s.issue(user)
}

// GetUser loads the profile behind an access token.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*store.User, error) {
	return s.users.GetByID(ctx, id)
}

// Logout revokes the presented access token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, claims *token.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if userID, err := claims.UserID(); err == nil {
		s.auditor.Record(ctx, audit.Entry{UserID: &userID, Action: "auth.logout"})
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (s *Service) GoogleEnabled() bool {
	return s.google != nil
}

// GoogleStart returns the consent URL the browser should be redirected to.
func (s *Service) GoogleStart(redirectTo string) (string, error) {
	if s.google == nil {
		return "", ErrProviderNotEnabled
	}
	nonce, err := randomNonce()
	if err != nil {
		return "", err
	}
	encoded, err := state.Encode(s.security.OAuthStateSecret, state.Payload{Nonce: nonce, RedirectTo: redirectTo}, oauthStateTTL)
	if err != nil {
		return "", fmt.Errorf("encode oauth state: %w", err)
	}
	return s.google.AuthCodeURL(encoded), nil
}

// GoogleCallback completes the OAuth round trip and signs the user in,
// creating or linking an account by verified email.
func (s *Service) GoogleCallback(ctx context.Context, in OAuthCallbackInput) (*AuthResult, error) {
	if s.google == nil {
		return nil, ErrProviderNotEnabled
	}
	payload, err := state.Decode(s.security.OAuthStateSecret, in.State)
	if err != nil {
		s.logger.Debug("rejecting oauth state", zap.Error(err))
		return nil, ErrOAuthStateInvalid
	}
	if in.Code == "" {
		return nil, ErrOAuthStateInvalid
	}

	profile, err := s.google.Authenticate(ctx, in.Code)
	if err != nil {
		return nil, fmt.Errorf("google authenticate: %w", err)
	}
	if !profile.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	user, err := s.resolveGoogleUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		UserID:    &user.ID,
		Action:    "auth.login_google",
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	})
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	result.RedirectTo = payload.RedirectTo
	return result, nil
}

func (s *Service) resolveGoogleUser(ctx context.Context, profile *googleprovider.Profile) (*store.User, error) {
	user, err := s.users.GetByGoogleSubject(ctx, profile.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup google user: %w", err)
	}

	user, err = s.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if err := s.users.LinkGoogle(ctx, user.ID, profile.Subject); err != nil {
			return nil, err
		}
		return user, nil
	case errors.Is(err, store.ErrNotFound):
		subject := profile.Subject
		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name = strings.SplitN(profile.Email, "@", 2)[0]
		}
		user = &store.User{Name: name, Email: normalizeEmail(profile.Email), GoogleSubject: &subject}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create google user: %w", err)
		}
		return user, nil
	default:
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
}

func (s *Service) issue(user *store.User) (*AuthResult, error) {
	signed, exp, err := s.tokenSvc.MintAccessToken(token.AccessTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	return &AuthResult{User: user, AccessToken: signed, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
