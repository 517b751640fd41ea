package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/user"
)

const (
	// SessionCookieName carries the signed session key for the portals.
	SessionCookieName = "cadenza_session"

	contextAuthKey = "auth"
	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
// JWTs serve API clients; the portals use the session cookie instead.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// authInfo is the outcome of either auth scheme: who is calling, with which
// roles, and via which session (empty for JWTs).
type authInfo struct {
	UserID     string
	Roles      []string
	SessionKey string
	CookieVal  string
}

func GetUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			Audience:  "Cadenza",
			ExpiresAt: now.Add(core.Conf.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(core.Conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(core.Conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, errUnauthorized
	}
	return claims, nil
}

// authenticate checks the credentials and returns the matching active user.
func authenticate(uname, pwd string, svc *user.Service) (user.User, error) {
	usr, err := svc.GetByUsernameOrEmail(uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	usr, err = svc.SetLastLogin(usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

// authMiddleware authenticates the request via the session cookie, falling
// back to a Bearer JWT for API clients.
func authMiddleware(deps *Deps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if cookie, err := ctx.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				sess, err := deps.SessionMgr.Verify(cookie.Value)
				if err != nil {
					expireSessionCookie(ctx)
					return errUnauthorized
				}
				// the session only proves who logged in; the account must still be active
				usr, err := deps.UserSvc.GetByID(sess.UserID)
				if err != nil {
					_ = deps.SessionMgr.Destroy(cookie.Value)
					expireSessionCookie(ctx)
					return errUnauthorized
				}
				if !usr.IsActive {
					_ = deps.SessionMgr.Destroy(cookie.Value)
					expireSessionCookie(ctx)
					return errAccountDeactivated
				}
				ctx.Set(contextUserKey, usr)
				ctx.Set(contextAuthKey, authInfo{
					UserID:     sess.UserID,
					Roles:      sess.Roles,
					SessionKey: sess.Key,
					CookieVal:  cookie.Value,
				})
				return next(ctx)
			}

			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if strings.HasPrefix(header, "Bearer ") {
				claims, err := parseToken(strings.TrimPrefix(header, "Bearer "))
				if err != nil {
					return err
				}
				ctx.Set(contextAuthKey, authInfo{UserID: claims.Subject, Roles: claims.Roles})
				ctx.Set("userClaims", claims)
				return next(ctx)
			}

			return errUnauthorized
		}
	}
}

func getContextAuth(ctx echo.Context) (authInfo, error) {
	if auth, ok := ctx.Get(contextAuthKey).(authInfo); ok {
		return auth, nil
	}
	return authInfo{}, errUnauthorized
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get("userClaims").(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	auth, err := getContextAuth(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(auth.UserID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// contextHasAnyRole reports whether the caller holds a role under any of the
// given prefixes. Role prefixes are hierarchical: "admin:" covers "admin:owner".
func contextHasAnyRole(ctx echo.Context, rolePrefixes ...string) bool {
	auth, err := getContextAuth(ctx)
	if err != nil {
		return false
	}
	for _, prefix := range rolePrefixes {
		for _, role := range auth.Roles {
			if strings.HasPrefix(role, prefix) {
				return true
			}
		}
	}
	return false
}

func setSessionCookie(ctx echo.Context, cookieVal string) {
	ctx.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    cookieVal,
		Path:     "/",
		Expires:  time.Now().Add(core.Conf.SessionTTL),
		HttpOnly: true,
		Secure:   !core.Conf.Debug,
		SameSite: http.SameSiteLaxMode,
	})
}

func expireSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func refreshToken(ctx echo.Context, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}

	usr, err := getContextUser(ctx, svc)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(GetUserClaims(usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
