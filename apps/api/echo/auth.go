package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/auth"
)

const (
	contextTokenKey   = "sessionToken"
	contextSessionKey = "session"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// The token only names the session; everything else is read from the session store,
// so a logout invalidates it at once.
type Claims struct {
	jwt.StandardClaims
}

func newSessionClaims(appName string, sess auth.Session) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:       sess.ID,
			Issuer:   appName,
			Subject:  sess.ID,
			IssuedAt: sess.CreatedAt.Unix(),
		},
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf middleware.JWTConfig, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(conf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(conf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextSession(ctx echo.Context) (auth.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(auth.Session); ok {
		return sess, nil
	}
	return auth.Session{}, errUnauthorized
}

// sessionMiddleware loads the session named by the token. It must run after the JWT middleware.
func sessionMiddleware(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			sess, err := svc.Session(claims.Subject)
			if err != nil {
				if errors.Cause(err) == auth.ErrSessionNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "loading session")
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

// Responses

type (
	LoginResponse struct {
		Token   string       `json:"token"`
		Session auth.Session `json:"session"`
	}
)

func newLoginResponse(conf middleware.JWTConfig, appName string, sess auth.Session) (LoginResponse, error) {
	token, err := GenerateToken(conf, newSessionClaims(appName, sess))
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{Token: token, Session: sess}, nil
}
