package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/DocQL/core"
)

var errAuthRequired = errors.New("authentication required: send AUTH JWT <token>")

// AuthConfig configures JWT authentication for both listeners.
type AuthConfig struct {
	// Enabled rejects statements until the client authenticates.
	Enabled bool

	// JWTSecret is the shared secret for HMAC-signed tokens.
	JWTSecret string

	// Issuer and Audience are checked against "iss" and "aud" when set.
	Issuer   string
	Audience string

	NameClaim  string // default "name"
	EmailClaim string // default "email"
}

// session is the authentication state of one TCP connection.
type session struct {
	identity *core.Identity
	expiry   time.Time // zero when the token has no "exp"
}

func (s *session) authenticated() bool {
	return s.identity != nil
}

// expired reports whether the session's token has run out, and forgets the
// identity if so.
func (s *session) expired(now time.Time) bool {
	if s.identity == nil || s.expiry.IsZero() || now.Before(s.expiry) {
		return false
	}
	*s = session{}
	return true
}

func claimOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// verify checks an HMAC-signed token and returns the identity it carries
// together with its expiry.
func (config *AuthConfig) verify(raw string) (core.Identity, time.Time, error) {
	if config == nil || config.JWTSecret == "" {
		return core.Identity{}, time.Time{}, errors.New("authentication not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(config.JWTSecret), nil
	}, opts...)
	if err != nil {
		return core.Identity{}, time.Time{}, fmt.Errorf("invalid token: %w", err)
	}

	nameClaim := claimOr(config.NameClaim, "name")
	emailClaim := claimOr(config.EmailClaim, "email")
	identity := core.Identity{}
	identity.Name, _ = claims[nameClaim].(string)
	identity.Email, _ = claims[emailClaim].(string)
	if identity.Name == "" && identity.Email == "" {
		return core.Identity{}, time.Time{}, fmt.Errorf("token has neither %q nor %q claim", nameClaim, emailClaim)
	}

	var expiry time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiry = exp.Time
	}
	return identity, expiry, nil
}

// authToken extracts the token of an "AUTH JWT <token>" line. ok is false
// for lines that are not AUTH commands at all.
func authToken(line string) (token string, ok bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "AUTH") {
		return "", false, nil
	}
	if len(fields) != 3 {
		return "", true, errors.New("invalid AUTH command: expected AUTH JWT <token>")
	}
	if !strings.EqualFold(fields[1], "JWT") {
		return "", true, fmt.Errorf("unsupported auth type: %s", fields[1])
	}
	return fields[2], true, nil
}

// authenticate handles an AUTH line for the connection owning sess.
func (s *Server) authenticate(line string, sess *session) Response {
	token, _, err := authToken(line)
	if err != nil {
		return errorResponse(errorTypeAuth, err)
	}

	identity, expiry, err := s.auth.verify(token)
	if err != nil {
		s.logger.Warn("authentication failed", "error", err)
		return errorResponse(errorTypeAuth, err)
	}
	*sess = session{identity: &identity, expiry: expiry}

	body := AuthResponse{Authenticated: true, Identity: identity.String()}
	if !expiry.IsZero() {
		body.ExpiresIn = int(time.Until(expiry).Seconds())
	}
	data, _ := json.Marshal(body)
	return Response{Success: true, Type: "auth", Result: data}
}
