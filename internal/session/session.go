// Package session resolves who is acting: from positional command-line
// arguments for the desktop tools, or from a signed token for the HTTP API.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("session token has expired")
	ErrTokenInvalid = errors.New("session token is invalid")
)

const issuer = "bigongold-loans"

// FromArgs reads "<role> <username>" from args (os.Args[1:]). Missing
// arguments fall back to the guest session.
func FromArgs(args []string) (domain.Session, error) {
	s := domain.GuestSession
	if len(args) > 0 && args[0] != "" {
		s.Role = domain.Role(args[0])
		if !s.Role.IsValid() {
			return domain.Session{}, fmt.Errorf("unknown role %q, want Staff or Admin", args[0])
		}
	}
	if len(args) > 1 && args[1] != "" {
		s.Username = args[1]
	}
	return s, nil
}

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token carrying s.
func (sg *Signer) Issue(s domain.Session) (string, time.Time, error) {
	now := sg.now()
	expires := now.Add(sg.ttl)
	claims := Claims{
		Username: s.Username,
		Role:     string(s.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   s.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sg.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse validates a token and returns the session it carries.
func (sg *Signer) Parse(tokenString string) (domain.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return sg.secret, nil
	}, jwt.WithTimeFunc(sg.now), jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Session{}, ErrTokenExpired
		}
		return domain.Session{}, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Session{}, ErrTokenInvalid
	}

	s := domain.Session{Role: domain.Role(claims.Role), Username: claims.Username}
	if !s.Role.IsValid() || s.Username == "" {
		return domain.Session{}, ErrTokenInvalid
	}
	return s, nil
}
