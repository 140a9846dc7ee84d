package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Skotchmaster/checkout/pkg/authclient"
	jwthelp "github.com/Skotchmaster/checkout/pkg/jwt"
	"github.com/Skotchmaster/checkout/pkg/logging"
	"github.com/Skotchmaster/checkout/pkg/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	LoginPath  = "/login"
	userIDKey  = "user_id"
	accessKey  = "accessToken"
	refreshKey = "refreshToken"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Refresher interface {
	RefreshTokens(ctx context.Context, refreshToken, accessToken string) (*authclient.RefreshResponse, error)
}

type AutoRefreshMiddleware struct {
	JWTSecret  []byte
	AuthClient Refresher
}

func NewAutoRefreshMiddleware(secret []byte, authClient Refresher) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{
		JWTSecret:  secret,
		AuthClient: authClient,
	}
}

// RequireAuth resolves the current user from the access cookie, refreshing an expired token once.
// Requests without an identity get 401 with a Location pointing at the login flow.
func (m *AutoRefreshMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "auth")

		accessCookie, err := c.Cookie(accessKey)
		if err != nil || accessCookie.Value == "" {
			return unauthorized(c, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err == nil {
			return m.proceed(c, next, claims)
		}

		if !errors.Is(err, jwt.ErrTokenExpired) || m.AuthClient == nil {
			clearAuthCookies(c)
			return unauthorized(c, "invalid access token")
		}

		refreshCookie, rErr := c.Cookie(refreshKey)
		if rErr != nil || refreshCookie.Value == "" {
			clearAuthCookies(c)
			return unauthorized(c, "refresh token missing")
		}

		refreshResp, refErr := m.AuthClient.RefreshTokens(c.Request().Context(), refreshCookie.Value, accessCookie.Value)
		if refErr != nil {
			l.Warn("token_refresh_failed", "error", refErr)
			clearAuthCookies(c)
			return unauthorized(c, "refresh failed")
		}

		c.SetCookie(jwthelp.CreateCookie(accessKey, refreshResp.AccessToken, "/", time.Unix(refreshResp.AccessExp, 0)))
		c.SetCookie(jwthelp.CreateCookie(refreshKey, refreshResp.RefreshToken, "/", time.Unix(refreshResp.RefreshExp, 0)))

		newClaims, pErr := tokens.AccessClaimsFromToken(refreshResp.AccessToken, m.JWTSecret)
		if pErr != nil {
			clearAuthCookies(c)
			return unauthorized(c, "new access token invalid")
		}

		l.Debug("token_refreshed")
		return m.proceed(c, next, newClaims)
	}
}

func (m *AutoRefreshMiddleware) proceed(c echo.Context, next echo.HandlerFunc, claims *tokens.AccessClaims) error {
	userID, err := claims.UserID()
	if err != nil {
		clearAuthCookies(c)
		return unauthorized(c, "invalid subject")
	}
	c.Set(userIDKey, userID)
	return next(c)
}

// UserID returns the identity placed on the context by RequireAuth.
func UserID(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(userIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return id, nil
}

// SetUserID is used by handler tests that bypass the cookie flow.
func SetUserID(c echo.Context, id uuid.UUID) {
	c.Set(userIDKey, id)
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderLocation, LoginPath)
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie(accessKey, "/"))
	c.SetCookie(jwthelp.DeleteCookie(refreshKey, "/"))
}
