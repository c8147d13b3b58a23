package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/kvstore/internal/core/domain/auth"
)

type ctxKey string

const (
	keyClaims     ctxKey = "auth_claims"
	keyAuthMethod ctxKey = "auth_method"
)

// AuthMethod identifies how the request authenticated.
type AuthMethod string

const (
	AuthMethodJWT      AuthMethod = "jwt"
	AuthMethodAPIToken AuthMethod = "api_token"
)

func SetClaims(c echo.Context, claims *auth.Claims) { c.Set(string(keyClaims), claims) }
func GetClaimsRaw(c echo.Context) (*auth.Claims, bool) {
	v := c.Get(string(keyClaims))
	cl, ok := v.(*auth.Claims)
	return cl, ok
}

func SetAuthMethod(c echo.Context, m AuthMethod) { c.Set(string(keyAuthMethod), m) }
func GetAuthMethodRaw(c echo.Context) (AuthMethod, bool) {
	v := c.Get(string(keyAuthMethod))
	m, ok := v.(AuthMethod)
	return m, ok
}
