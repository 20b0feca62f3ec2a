package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prajyotgorlewar/BattleIDE/internal/jwt"
)

var (
	ErrTokenRequired    = errors.New("token is required")
	ErrIdentityMismatch = errors.New("token does not belong to userId")
)

// AuthMiddleware checks that a socket handshake carries a token for the
// userId it claims.
type AuthMiddleware struct {
	jwtManager *jwt.JWTManager
}

func NewAuthMiddleware(jwtManager *jwt.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// AuthenticateJWT validates token, with or without a "Bearer " prefix.
func (m *AuthMiddleware) AuthenticateJWT(token string) (*jwt.CustomClaims, error) {
	if after, ok := strings.CutPrefix(token, "Bearer "); ok {
		token = after
	}
	if token == "" {
		return nil, ErrTokenRequired
	}
	return m.jwtManager.ValidateToken(token)
}

// AuthorizeHandshake reads the token from the "token" query parameter or the
// Authorization header and requires its subject to equal userID.
func (m *AuthMiddleware) AuthorizeHandshake(r *http.Request, userID string) error {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}

	claims, err := m.AuthenticateJWT(token)
	if err != nil {
		return err
	}
	if claims.UserID != userID {
		return ErrIdentityMismatch
	}
	return nil
}
