package echoapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/member"
	"github.com/trezcool/darasa/core/watch"
)

var (
	appJWTConfig       middleware.JWTConfig
	appName            string
	jwtExpirationDelta time.Duration

	contextTokenKey = "memberToken"
)

// initAuth wires the JWT middleware config from the app config; it must run
// before any token is issued or verified.
func initAuth(conf *core.Config) {
	appName = conf.AppName
	jwtExpirationDelta = conf.Server.JWTExpirationDelta
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

func GetIdentityClaims(ident member.Identity) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appName,
			Subject:   ident.ID,
			ExpiresAt: now.Add(jwtExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: ident.Username,
		Email:    ident.Email,
		Role:     string(ident.Role),
	}
}

// GenerateToken generates a signed JWT token string representing the member Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	key, _ := appJWTConfig.SigningKey.([]byte)
	ss, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// identity maps the raw role claim through ParseRole; an unknown role claim
// degrades to anonymous rather than erroring.
func (c Claims) identity() member.Identity {
	role, _ := member.ParseRole(c.Role)
	return member.Identity{
		ID:       c.Subject,
		Username: c.Username,
		Email:    c.Email,
		Role:     role,
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextIdentity(ctx echo.Context) (member.Identity, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return member.Identity{}, err
	}
	return claims.identity(), nil
}

// checkMemberOrAdmin rejects requests targeting another member's data
// unless the caller is an admin.
func checkMemberOrAdmin(ctx echo.Context, memberID string) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	if ident.ID == memberID || ident.Role.IsAdmin() {
		return nil
	}
	return errHttpForbidden
}

// jwtIdentityResolver decodes bearer tokens outside the middleware pipeline.
type jwtIdentityResolver struct{}

var _ watch.IdentityResolver = jwtIdentityResolver{} // interface compliance check

func NewIdentityResolver() jwtIdentityResolver { return jwtIdentityResolver{} }

func (jwtIdentityResolver) DecodeIdentity(_ context.Context, bearerToken string) (member.Identity, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(bearerToken, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != appJWTConfig.SigningMethod {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return appJWTConfig.SigningKey, nil
	})
	if err != nil {
		return member.Identity{}, errors.Wrap(err, "parsing token")
	}
	if !token.Valid {
		return member.Identity{}, errors.New("invalid token")
	}
	return claims.identity(), nil
}

// Token API

type tokenApi struct {
	resolver jwtIdentityResolver
}

func registerTokenAPI(g *echo.Group) {
	api := tokenApi{resolver: NewIdentityResolver()}
	g.GET("/token/decode", api.decode)
}

// decode resolves the bearer token to the member identity it carries.
// An absent or undecodable token yields the anonymous identity, not an error:
// callers use this to decide whether a login is required.
func (api tokenApi) decode(ctx echo.Context) error {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	if raw == "" {
		return ctx.JSON(http.StatusOK, member.Identity{})
	}

	ident, err := api.resolver.DecodeIdentity(ctx.Request().Context(), raw)
	if err != nil {
		return ctx.JSON(http.StatusOK, member.Identity{})
	}
	return ctx.JSON(http.StatusOK, ident)
}
