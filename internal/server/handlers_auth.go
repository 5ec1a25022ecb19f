package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/n0hyd/energy-app-sub001/internal/errors"
)

const (
	oauthTimeout = 10 * time.Second
	oauthScopes  = "openid email profile"
)

func (s *Server) registerAuthRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/auth/login", s.handleLoginPage, rateLimiter)
	s.echo.GET("/auth/callback", s.handleOAuthCallback, rateLimiter)
	s.echo.POST("/auth/logout", s.handleLogout, rateLimiter, s.requirePageAuth, csrfMiddleware)
}

func (s *Server) handleRoot(c echo.Context) error {
	if err := c.Redirect(http.StatusFound, "/dashboard"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

// sessionUserID extracts the user ID stored by a previous login, if any.
func (s *Server) sessionUserID(c echo.Context) (uuid.UUID, bool) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return uuid.Nil, false
	}
	idStr, ok := session.Values[sessionKeyUserID].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// requirePageAuth gates server-rendered pages. Requests without a valid
// session are sent to the login page with the original path as the redirect
// target.
func (s *Server) requirePageAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := s.sessionUserID(c)
		if !ok {
			return redirectToLogin(c)
		}

		// Verify the user still exists in the DB (handles wiped DB, deleted accounts).
		if _, err := s.app.GetUserByID(c.Request().Context(), userID); err != nil {
			slog.Warn("Session references unknown user, invalidating", "user_id", userID)
			s.clearSession(c)
			return redirectToLogin(c)
		}

		c.Set("userID", userID)
		return next(c)
	}
}

// requireAPIAuth gates the JSON API. Requests without a valid session get a
// 401 body instead of a redirect.
func (s *Server) requireAPIAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := s.sessionUserID(c)
		if !ok {
			return apperrors.UnauthorizedError("authentication required")
		}

		if _, err := s.app.GetUserByID(c.Request().Context(), userID); err != nil {
			return apperrors.UnauthorizedError("authentication required")
		}

		c.Set("userID", userID)
		return next(c)
	}
}

// isAuthenticated checks whether the request has a valid session for an existing user.
func (s *Server) isAuthenticated(c echo.Context) bool {
	userID, ok := s.sessionUserID(c)
	if !ok {
		return false
	}
	_, err := s.app.GetUserByID(c.Request().Context(), userID)
	return err == nil
}

func redirectToLogin(c echo.Context) error {
	loginURL := "/auth/login"
	if target := c.Request().RequestURI; target != "" && target != "/" {
		loginURL += "?redirect=" + url.QueryEscape(target)
	}
	if err := c.Redirect(http.StatusFound, loginURL); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

// sanitizeRedirect keeps post-login redirects on this host: only absolute
// local paths pass, everything else falls back to the dashboard.
func sanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/dashboard"
	}
	return target
}

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Server) handleLoginPage(c echo.Context) error {
	// Already-authenticated users skip the provider round trip.
	if s.isAuthenticated(c) {
		if err := c.Redirect(http.StatusFound, "/dashboard"); err != nil {
			return fmt.Errorf("failed to redirect: %w", err)
		}
		return nil
	}

	state, err := generateOAuthState()
	if err != nil {
		return apperrors.InternalError("failed to generate OAuth state", err)
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Error("Failed to get session for OAuth state", "error", err)
	}

	session.Values[sessionKeyOAuthState] = state
	session.Values[sessionKeyLoginTarget] = sanitizeRedirect(c.QueryParam("redirect"))
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save OAuth state session", err)
	}

	authURL := fmt.Sprintf(
		"%s/oauth/authorize?client_id=%s&redirect_uri=%s&response_type=code&scope=%s&state=%s",
		strings.TrimSuffix(s.config.AuthIssuerURL, "/"),
		url.QueryEscape(s.config.AuthClientID),
		url.QueryEscape(s.config.AuthRedirectURI),
		url.QueryEscape(oauthScopes),
		url.QueryEscape(state),
	)

	data := map[string]any{"AuthURL": authURL}
	return s.renderTemplate(c, "login.html", data)
}

func (s *Server) handleOAuthCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return apperrors.ValidationError("missing code parameter")
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return apperrors.ValidationError("invalid session")
	}

	expectedState, ok := session.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" {
		return apperrors.ValidationError("missing OAuth state")
	}
	if c.QueryParam("state") != expectedState {
		return apperrors.ValidationError("invalid OAuth state")
	}
	delete(session.Values, sessionKeyOAuthState)

	target, _ := session.Values[sessionKeyLoginTarget].(string)
	target = sanitizeRedirect(target)
	delete(session.Values, sessionKeyLoginTarget)

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	result, err := s.identity.Exchange(ctx, code)
	if err != nil {
		return apperrors.ExternalError("failed to authenticate with identity provider", err)
	}

	user, err := s.app.SignIn(ctx, result.Subject, result.Email, result.Name)
	if err != nil {
		return apperrors.InternalError("failed to save user", err).WithField("auth_subject", result.Subject)
	}

	// Regenerate the session ID after authentication so a session ID fixated
	// before login cannot be replayed afterwards.
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to invalidate old session", err)
	}

	session, err = s.sessionStore.New(c.Request(), sessionName)
	if err != nil {
		return apperrors.InternalError("failed to create new session", err)
	}

	session.Values[sessionKeyUserID] = user.ID.String()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID, "auth_subject", result.Subject)

	if err := c.Redirect(http.StatusFound, target); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	ctx := c.Request().Context()
	userID, _ := c.Get("userID").(uuid.UUID)

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Error("Failed to get session during logout", "error", err)
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			return apperrors.InternalError("failed to create new session during logout", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save logout session", err)
	}

	slog.InfoContext(ctx, "User logged out", "user_id", userID)

	if err := c.Redirect(http.StatusFound, "/auth/login"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) clearSession(c echo.Context) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return
	}
	session.Options.MaxAge = -1
	_ = session.Save(c.Request(), c.Response().Writer)
}
