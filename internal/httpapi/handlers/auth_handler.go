package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/academictracker/api/internal/httpapi"
	authmiddleware "github.com/academictracker/api/internal/httpapi/middleware"
	"github.com/academictracker/api/internal/services/auth"
	"github.com/academictracker/api/internal/store"
	"github.com/academictracker/api/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService describes the auth layer capabilities used by HTTP handlers.
type AuthService interface {
	Signup(ctx context.Context, in auth.SignupInput) (*auth.AuthResult, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.AuthResult, error)
	GetUser(ctx context.Context, id uuid.UUID) (*store.User, error)
	Logout(ctx context.Context, claims *token.Claims) error
	GoogleEnabled() bool
	GoogleStart(redirectTo string) (string, error)
	GoogleCallback(ctx context.Context, in auth.OAuthCallbackInput) (*auth.AuthResult, error)
}

// AuthHandler exposes HTTP endpoints for authentication flows.
type AuthHandler struct {
	service   AuthService
	logger    *zap.Logger
	clientURL string
}

// NewAuthHandler constructs a handler. clientURL bounds where the Google flow
// may send the browser afterwards.
func NewAuthHandler(service AuthService, logger *zap.Logger, clientURL string) *AuthHandler {
	return &AuthHandler{service: service, logger: logger, clientURL: strings.TrimRight(clientURL, "/")}
}

// Routes registers the auth endpoints. requireAuth guards session-bound routes
// and loginLimit throttles credential checks.
func (h *AuthHandler) Routes(r chi.Router, wrap httpapi.Adapter, requireAuth, loginLimit func(http.Handler) http.Handler) {
	r.Post("/signup", wrap(h.Signup))
	r.Post("/register", wrap(h.Signup))
	r.With(loginLimit).Post("/login", wrap(h.Login))
	r.Get("/google", wrap(h.GoogleStart))
	r.Get("/google/callback", wrap(h.GoogleCallback))

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/me", wrap(h.Me))
		r.Post("/logout", wrap(h.Logout))
	})
}

// Signup handles user registration requests.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) error {
	var req signupRequest
	if err := httpapi.Decode(r, &req); err != nil {
		return err
	}

	result, err := h.service.Signup(r.Context(), auth.SignupInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: httpapi.ClientIP(r),
		UserAgent: httpapi.UserAgent(r),
	})
	if err != nil {
		return authError(err)
	}
	httpapi.Success(w, http.StatusCreated, toAuthResponse(result))
	return nil
}

// Login authenticates a user and issues an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := httpapi.Decode(r, &req); err != nil {
		return err
	}

	result, err := h.service.Login(r.Context(), auth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: httpapi.ClientIP(r),
		UserAgent: httpapi.UserAgent(r),
	})
	if err != nil {
		return authError(err)
	}
	httpapi.Success(w, http.StatusOK, toAuthResponse(result))
	return nil
}

// Me returns the authenticated user profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) error {
	userID, ok := authmiddleware.UserIDFromContext(r.Context())
	if !ok {
		return httpapi.Unauthorized("unauthorized", "missing auth context")
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httpapi.Unauthorized("unauthorized", "account no longer exists")
		}
		return err
	}
	httpapi.Success(w, http.StatusOK, user)
	return nil
}

// Logout revokes the bearer token used for this request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	claims, ok := authmiddleware.ClaimsFromContext(r.Context())
	if !ok {
		return httpapi.Unauthorized("unauthorized", "missing auth context")
	}
	if err := h.service.Logout(r.Context(), claims); err != nil {
		return err
	}
	httpapi.Message(w, http.StatusOK, "Logged out")
	return nil
}

// GoogleStart redirects the browser to Google's consent screen.
func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) error {
	redirectTo := r.URL.Query().Get("redirect_to")
	if redirectTo != "" && !h.allowedRedirect(redirectTo) {
		return httpapi.BadRequest("redirect_to must point at the client application")
	}
	consentURL, err := h.service.GoogleStart(redirectTo)
	if err != nil {
		return authError(err)
	}
	http.Redirect(w, r, consentURL, http.StatusFound)
	return nil
}

// GoogleCallback completes Google sign-in. When the flow began with a
// redirect_to target the token is handed over in the URL fragment.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		return &httpapi.Error{Status: http.StatusUnauthorized, Code: "oauth_denied", Message: "google sign-in was not completed: " + providerErr}
	}

	result, err := h.service.GoogleCallback(r.Context(), auth.OAuthCallbackInput{
		Code:      q.Get("code"),
		State:     q.Get("state"),
		IPAddress: httpapi.ClientIP(r),
		UserAgent: httpapi.UserAgent(r),
	})
	if err != nil {
		return authError(err)
	}

	if result.RedirectTo != "" {
		fragment := url.Values{}
		fragment.Set("access_token", result.AccessToken)
		fragment.Set("expires_at", result.ExpiresAt.UTC().Format(time.RFC3339))
		http.Redirect(w, r, result.RedirectTo+"#"+fragment.Encode(), http.StatusFound)
		return nil
	}
	httpapi.Success(w, http.StatusOK, toAuthResponse(result))
	return nil
}

func (h *AuthHandler) allowedRedirect(target string) bool {
	if h.clientURL == "" {
		return false
	}
	return target == h.clientURL || strings.HasPrefix(target, h.clientURL+"/")
}

func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpapi.Error{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "invalid email or password", Err: err}
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		return &httpapi.Error{Status: http.StatusConflict, Code: "email_exists", Message: "user with email already exists", Err: err}
	case errors.Is(err, auth.ErrProviderNotEnabled):
		return &httpapi.Error{Status: http.StatusNotFound, Code: "provider_disabled", Message: "google sign-in is not enabled", Err: err}
	case errors.Is(err, auth.ErrOAuthStateInvalid):
		return &httpapi.Error{Status: http.StatusBadRequest, Code: "invalid_state", Message: "oauth state invalid or expired", Err: err}
	case errors.Is(err, auth.ErrEmailNotVerified):
		return &httpapi.Error{Status: http.StatusForbidden, Code: "email_not_verified", Message: "google account email is not verified", Err: err}
	default:
		return err
	}
}

type authResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	ExpiresIn   int         `json:"expires_in"`
	User        *store.User `json:"user"`
}

func toAuthResponse(result *auth.AuthResult) authResponse {
	return authResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		ExpiresIn:   int(time.Until(result.ExpiresAt).Seconds()),
		User:        result.User,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
