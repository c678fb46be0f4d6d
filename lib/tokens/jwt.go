package tokens

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
)

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`

	jwt.StandardClaims
}

// GenerateAccessToken : Generate a bearer token for a user session
func GenerateAccessToken(secret []byte, expirySeconds int, userID, role string) (string, error) {
	claims := &Claims{
		UserID: userID,
		Role:   role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Duration(expirySeconds) * time.Second).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	t, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return t, nil
}

// ParseToken : Verify a bearer token and return its claims
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ParseIdentity extracts the claims without verifying the signature. The
// session treats the credential as opaque; only the auth backend can verify
// it. This is used client-side to learn which user the session acts as.
func ParseIdentity(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("malformed bearer token: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("bearer token carries no user id")
	}
	return claims, nil
}

// Middleware : Authenticate requests against the signing secret and stash
// the caller's identity in the request context
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			if tokenString == "" || tokenString == auth {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := ParseToken(secret, tokenString)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "bad auth"})
			}
			c.Set("UserID", claims.UserID)
			c.Set("Role", claims.Role)
			return next(c)
		}
	}
}
