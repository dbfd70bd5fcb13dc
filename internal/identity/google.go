package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleIdentity is what a verified Google ID token says about the user.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

type GoogleTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// GoogleVerifier checks RS256 ID tokens against Google's signing keys, keyed by kid.
type GoogleVerifier struct {
	clientID string
	keys     map[string]*rsa.PublicKey
}

func NewGoogleVerifier(clientID string, keys map[string]*rsa.PublicKey) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, keys: keys}
}

// LoadGoogleKeys reads a JSON object of kid to PEM certificate, the format of
// https://www.googleapis.com/oauth2/v1/certs.
func LoadGoogleKeys(path string) (map[string]*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read google keys: %w", err)
	}
	var pems map[string]string
	if err := json.Unmarshal(data, &pems); err != nil {
		return nil, fmt.Errorf("failed to parse google keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, pem := range pems {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("failed to parse google key %s: %w", kid, err)
		}
		keys[kid] = key
	}
	return keys, nil
}

func (g *GoogleVerifier) Verify(_ context.Context, idToken string) (*GoogleIdentity, error) {
	if g.clientID == "" || len(g.keys) == 0 {
		return nil, errors.New("google sign-in is not configured")
	}

	var claims googleClaims
	_, err := jwt.ParseWithClaims(idToken, &claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		key, ok := g.keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(g.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if !issuerAllowed(claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", domain.ErrInvalidToken, claims.Issuer)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", domain.ErrInvalidToken)
	}

	return &GoogleIdentity{
		Subject:       claims.Subject,
		Email:         strings.ToLower(claims.Email),
		EmailVerified: claims.EmailVerified,
	}, nil
}

func issuerAllowed(iss string) bool {
	for _, allowed := range googleIssuers {
		if iss == allowed {
			return true
		}
	}
	return false
}
