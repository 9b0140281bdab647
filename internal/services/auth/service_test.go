package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/academictracker/api/internal/audit"
	"github.com/academictracker/api/internal/config"
	"github.com/academictracker/api/internal/oauth/state"
	"github.com/academictracker/api/internal/password"
	googleprovider "github.com/academictracker/api/internal/providers/google"
	"github.com/academictracker/api/internal/revocation"
	"github.com/academictracker/api/internal/store"
	"github.com/academictracker/api/internal/token"
	"github.com/academictracker/api/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type memoryUsers struct {
	byID map[uuid.UUID]*store.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[uuid.UUID]*store.User)}
}

func (m *memoryUsers) Create(_ context.Context, u *store.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return store.ErrConflict
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*store.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*store.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryUsers) GetByGoogleSubject(_ context.Context, subject string) (*store.User, error) {
	for _, u := range m.byID {
		if u.GoogleSubject != nil && *u.GoogleSubject == subject {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryUsers) LinkGoogle(_ context.Context, id uuid.UUID, subject string) error {
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.GoogleSubject = &subject
	return nil
}

type fakeGoogle struct {
	profile *googleprovider.Profile
}

func (f *fakeGoogle) AuthCodeURL(s string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + url.QueryEscape(s)
}

func (f *fakeGoogle) Authenticate(context.Context, string) (*googleprovider.Profile, error) {
	return f.profile, nil
}

const stateSecret = "oauth-state-secret"

func newTestService(t *testing.T, users UserRepository, google GoogleProvider) (*Service, *token.Service, revocation.Store) {
	t.Helper()
	tokenSvc, err := token.NewService(config.TokenConfig{Secret: "test-secret-0123456789", Issuer: "academic-tracker", ExpiresIn: time.Hour})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	revoker := revocation.NewMemory()
	security := config.SecurityConfig{BcryptCost: bcrypt.MinCost, PasswordMinLength: 8, OAuthStateSecret: stateSecret}
	svc := New(Dependencies{
		Users:    users,
		TokenSvc: tokenSvc,
		Hasher:   password.NewHasher(security),
		Revoker:  revoker,
		Auditor:  audit.New(nil, zap.NewNop()),
		Logger:   zap.NewNop(),
		Google:   google,
		Security: security,
	})
	return svc, tokenSvc, revoker
}

func TestSignupThenLogin(t *testing.T) {
	users := newMemoryUsers()
	svc, tokenSvc, _ := newTestService(t, users, nil)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Name: "Ada Lovelace", Email: " Ada@Example.edu ", Password: "analytical-engine"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.User.Email != "ada@example.edu" {
		t.Fatalf("expected normalised email, got %q", res.User.Email)
	}
	if res.User.PasswordHash == nil || *res.User.PasswordHash == "analytical-engine" {
		t.Fatalf("password must be stored hashed")
	}
	claims, err := tokenSvc.ValidateAccessToken(res.AccessToken)
	if err != nil {
		t.Fatalf("validate signup token: %v", err)
	}
	if claims.Subject != res.User.ID.String() {
		t.Fatalf("token subject mismatch")
	}

	login, err := svc.Login(ctx, LoginInput{Email: "ADA@example.edu", Password: "analytical-engine"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Fatalf("login returned a different user")
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _, _ := newTestService(t, newMemoryUsers(), nil)
	_, err := svc.Signup(context.Background(), SignupInput{Email: "not-an-email", Password: "short"})

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	for _, field := range []string{"name", "email", "password"} {
		if _, ok := verrs[field]; !ok {
			t.Fatalf("expected problem for %s, got %v", field, verrs)
		}
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t, newMemoryUsers(), nil)
	in := SignupInput{Name: "Ada", Email: "ada@example.edu", Password: "analytical-engine"}
	if _, err := svc.Signup(context.Background(), in); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := svc.Signup(context.Background(), in); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := newTestService(t, newMemoryUsers(), nil)
	ctx := context.Background()
	if _, err := svc.Signup(ctx, SignupInput{Name: "Ada", Email: "ada@example.edu", Password: "analytical-engine"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	tests := []LoginInput{
		{Email: "ada@example.edu", Password: "wrong-password"},
		{Email: "nobody@example.edu", Password: "analytical-engine"},
		{Email: "", Password: ""},
	}
	for _, in := range tests {
		if _, err := svc.Login(ctx, in); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login(%q): expected ErrInvalidCredentials, got %v", in.Email, err)
		}
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, tokenSvc, revoker := newTestService(t, newMemoryUsers(), nil)
	ctx := context.Background()
	res, err := svc.Signup(ctx, SignupInput{Name: "Ada", Email: "ada@example.edu", Password: "analytical-engine"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	claims, err := tokenSvc.ValidateAccessToken(res.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	revoked, err := revoker.IsRevoked(ctx, claims.ID)
	if err != nil || !revoked {
		t.Fatalf("expected token revoked after logout, got %v (%v)", revoked, err)
	}
}

func TestGoogleDisabled(t *testing.T) {
	svc, _, _ := newTestService(t, newMemoryUsers(), nil)
	if svc.GoogleEnabled() {
		t.Fatalf("expected google disabled")
	}
	if _, err := svc.GoogleStart(""); !errors.Is(err, ErrProviderNotEnabled) {
		t.Fatalf("expected ErrProviderNotEnabled, got %v", err)
	}
	if _, err := svc.GoogleCallback(context.Background(), OAuthCallbackInput{}); !errors.Is(err, ErrProviderNotEnabled) {
		t.Fatalf("expected ErrProviderNotEnabled, got %v", err)
	}
}

func TestGoogleFlowLinksExistingAccount(t *testing.T) {
	users := newMemoryUsers()
	google := &fakeGoogle{profile: &googleprovider.Profile{Subject: "g-123", Email: "ada@example.edu", EmailVerified: true, Name: "Ada"}}
	svc, _, _ := newTestService(t, users, google)
	ctx := context.Background()

	existing, err := svc.Signup(ctx, SignupInput{Name: "Ada", Email: "ada@example.edu", Password: "analytical-engine"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	consent, err := svc.GoogleStart("http://localhost:5173/dashboard")
	if err != nil {
		t.Fatalf("google start: %v", err)
	}
	u, err := url.Parse(consent)
	if err != nil {
		t.Fatalf("parse consent url: %v", err)
	}
	encodedState := u.Query().Get("state")

	res, err := svc.GoogleCallback(ctx, OAuthCallbackInput{Code: "code", State: encodedState})
	if err != nil {
		t.Fatalf("google callback: %v", err)
	}
	if res.User.ID != existing.User.ID {
		t.Fatalf("expected google login to link the existing account")
	}
	if res.RedirectTo != "http://localhost:5173/dashboard" {
		t.Fatalf("expected redirect target carried through state, got %q", res.RedirectTo)
	}
	if linked, _ := users.GetByGoogleSubject(ctx, "g-123"); linked == nil {
		t.Fatalf("expected google subject linked")
	}
}

func TestGoogleCallbackCreatesUser(t *testing.T) {
	users := newMemoryUsers()
	google := &fakeGoogle{profile: &googleprovider.Profile{Subject: "g-9", Email: "grace@example.edu", EmailVerified: true}}
	svc, _, _ := newTestService(t, users, google)

	encoded, err := state.Encode(stateSecret, state.Payload{Nonce: "n"}, time.Minute)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	res, err := svc.GoogleCallback(context.Background(), OAuthCallbackInput{Code: "code", State: encoded})
	if err != nil {
		t.Fatalf("google callback: %v", err)
	}
	if res.User.Name != "grace" || res.User.PasswordHash != nil {
		t.Fatalf("unexpected google user %+v", res.User)
	}
}

func TestGoogleCallbackRejectsBadStateAndUnverifiedEmail(t *testing.T) {
	google := &fakeGoogle{profile: &googleprovider.Profile{Subject: "g-1", Email: "x@example.edu", EmailVerified: false}}
	svc, _, _ := newTestService(t, newMemoryUsers(), google)
	ctx := context.Background()

	if _, err := svc.GoogleCallback(ctx, OAuthCallbackInput{Code: "code", State: "garbage"}); !errors.Is(err, ErrOAuthStateInvalid) {
		t.Fatalf("expected ErrOAuthStateInvalid, got %v", err)
	}

	encoded, err := state.Encode(stateSecret, state.Payload{Nonce: "n"}, time.Minute)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	if _, err := svc.GoogleCallback(ctx, OAuthCallbackInput{Code: "code", State: encoded}); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}
