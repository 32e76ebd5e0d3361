// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package harness

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// Credentials logs a session in by installing an auth cookie. The cookie
// carries either a fixed value (mock auth) or a JWT signed for Email.
type Credentials struct {
	CookieName string
	// Value is used verbatim when no signing key is set.
	Value    string
	Email    string
	Issuer   string
	TTL      time.Duration
	HTTPOnly bool

	key    any
	kid    string
	method jwt.SigningMethod
	now    func() time.Time
}

var _ CookieSource = (*Credentials)(nil)

// MockCredentials installs name=value, as apps in mock-auth mode expect.
func MockCredentials(name, value string) *Credentials {
	return &Credentials{CookieName: name, Value: value}
}

// JWTCredentials signs tokens for email with the private key in the JWK
// file at keyFile.
func JWTCredentials(name, email, keyFile string, ttl time.Duration) (*Credentials, error) {
	key, kid, err := LoadSigningKey(keyFile)
	if err != nil {
		return nil, err
	}
	method, err := signingMethod(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyFile, err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Credentials{
		CookieName: name,
		Email:      email,
		TTL:        ttl,
		HTTPOnly:   true,
		key:        key,
		kid:        kid,
		method:     method,
	}, nil
}

// LoadSigningKey reads a private key in JWK form and returns the raw key
// and its key ID.
func LoadSigningKey(path string) (any, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	key, err := jwk.ParseKey(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse JWK %s: %w", path, err)
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, "", fmt.Errorf("failed to materialize key: %w", err)
	}
	kid, _ := key.KeyID()
	return raw, kid, nil
}

func signingMethod(key any) (jwt.SigningMethod, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PrivateKey:
		switch k.Curve.Params().BitSize {
		case 256:
			return jwt.SigningMethodES256, nil
		case 384:
			return jwt.SigningMethodES384, nil
		case 521:
			return jwt.SigningMethodES512, nil
		}
		return nil, fmt.Errorf("unsupported curve %s", k.Curve.Params().Name)
	case ed25519.PrivateKey:
		return jwt.SigningMethodEdDSA, nil
	case []byte:
		return jwt.SigningMethodHS256, nil
	}
	return nil, fmt.Errorf("unsupported signing key %T", key)
}

// Token returns a freshly signed token.
func (c *Credentials) Token() (string, error) {
	if c.key == nil {
		return "", fmt.Errorf("no signing key")
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	t := now()
	claims := jwt.MapClaims{
		"sub":   c.Email,
		"email": c.Email,
		"iat":   t.Unix(),
		"exp":   t.Add(c.TTL).Unix(),
	}
	if c.Issuer != "" {
		claims["iss"] = c.Issuer
	}
	token := jwt.NewWithClaims(c.method, claims)
	if c.kid != "" {
		token.Header["kid"] = c.kid
	}
	s, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Cookie builds the auth cookie for the host of baseURL.
func (c *Credentials) Cookie(baseURL string) (Cookie, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return Cookie{}, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if c.CookieName == "" {
		return Cookie{}, fmt.Errorf("cookie name is required")
	}
	value := c.Value
	if c.key != nil {
		if value, err = c.Token(); err != nil {
			return Cookie{}, err
		}
	}
	return Cookie{
		Name:     c.CookieName,
		Value:    value,
		Domain:   u.Hostname(),
		Path:     "/",
		Secure:   u.Scheme == "https",
		HTTPOnly: c.HTTPOnly,
	}, nil
}
