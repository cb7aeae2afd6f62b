package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"liftcart/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GuestTokenHeader carries the anonymous shopper's token in both directions.
const GuestTokenHeader = "X-Guest-Token"

const maxGuestTokenLen = 128

type identityKey struct{}

// Identity is who is calling: an account, a guest, or an account that
// still holds the guest token it shopped with before signing in.
type Identity struct {
	AccountID  string
	Email      string
	GuestToken string
}

// Authenticated reports whether the caller presented a valid account token.
func (i Identity) Authenticated() bool {
	return i.AccountID != ""
}

// Owner is the cart and order owner for this caller. Accounts win over
// guest tokens.
func (i Identity) Owner() model.Owner {
	if i.AccountID != "" {
		return model.AccountOwner(i.AccountID)
	}
	if i.GuestToken != "" {
		return model.GuestOwner(i.GuestToken)
	}
	return model.Owner{}
}

// Guest is the guest owner for this caller, zero if it sent no guest token.
func (i Identity) Guest() model.Owner {
	if i.GuestToken == "" {
		return model.Owner{}
	}
	return model.GuestOwner(i.GuestToken)
}

// AccountClaims are the claims of an account access token.
type AccountClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IdentityFromContext returns the identity stored by the Identity middleware.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityResolver resolves callers from a bearer JWT or a guest token.
// Anonymous callers are issued a fresh guest token in the response header.
func IdentityResolver(secret []byte, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "identity").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id Identity

			if auth := r.Header.Get("Authorization"); auth != "" {
				claims, err := parseBearer(auth, secret)
				if err != nil {
					logger.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected access token")
					writeError(w, http.StatusUnauthorized, "invalid or expired access token", model.ErrCodeUnauthorised)
					return
				}
				id.AccountID = claims.Subject
				id.Email = claims.Email
			}

			if token := strings.TrimSpace(r.Header.Get(GuestTokenHeader)); token != "" {
				if len(token) > maxGuestTokenLen {
					writeError(w, http.StatusBadRequest, "guest token is too long", model.ErrCodeUnauthorised)
					return
				}
				id.GuestToken = token
			}

			if id.AccountID == "" && id.GuestToken == "" {
				id.GuestToken = uuid.NewString()
				w.Header().Set(GuestTokenHeader, id.GuestToken)
				logger.Debug().Str("path", r.URL.Path).Msg("issued guest token")
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAccount rejects callers without a valid account token.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).Authenticated() {
			writeError(w, http.StatusUnauthorized, model.ErrUnauthorised.Message, model.ErrCodeUnauthorised)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseBearer(header string, secret []byte) (*AccountClaims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errors.New("authorization header is not a bearer token")
	}

	claims := &AccountClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

// SignAccountToken issues an HS256 access token for an account.
func SignAccountToken(secret []byte, accountID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccountClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
