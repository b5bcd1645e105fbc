// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package gametoken mints and validates the short-lived login tokens handed
// from the gateway to the game server.
//
// A token binds a character name to an absolute expiry and is signed with a
// secret shared between the gateway and the game server. Tokens are never
// stored: validity depends only on the token contents, the shared secret and
// the wall clock, so the game server can validate without calling back.
//
// # Wire format
//
// The encoded token is standard base64 of the JSON object
//
//	{"name": "<character>", "expire": <unix millis>, "token": "<hex hmac-sha256>"}
//
// where the signature covers name followed by the decimal expiry.
package gametoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 5 * time.Second

// Token is a signed, time-boxed capability for one character.
type Token struct {
	Name      string `json:"name"`
	Expire    int64  `json:"expire"`
	Signature string `json:"token"`
}

// ExpiresAt returns the expiry as a time.
func (t Token) ExpiresAt() time.Time {
	return time.UnixMilli(t.Expire)
}

// Issuer mints and validates tokens with a fixed secret and window.
// An Issuer is immutable and safe for concurrent use.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer creates an Issuer. The secret must not be empty.
func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, oops.Code("TOKEN_SECRET_EMPTY").Errorf("token signing secret cannot be empty")
	}
	i := &Issuer{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// TTL returns the validity window of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a token for name expiring TTL from now.
func (i *Issuer) Issue(name string) Token {
	expire := i.now().Add(i.ttl).UnixMilli()
	return Token{
		Name:      name,
		Expire:    expire,
		Signature: i.sign(name, expire),
	}
}

// Validate checks the signature and expiry of t.
// A token is valid up to and including its expiry instant.
func (i *Issuer) Validate(t Token) error {
	expected := i.sign(t.Name, t.Expire)
	// Compare the hex text; both sides have the same fixed length when well formed.
	if !hmac.Equal([]byte(expected), []byte(t.Signature)) {
		return oops.Code("TOKEN_BAD_SIGNATURE").
			With("name", t.Name).
			Errorf("token signature does not match")
	}
	if i.now().UnixMilli() > t.Expire {
		return oops.Code("TOKEN_EXPIRED").
			With("name", t.Name).
			With("expired_at", t.ExpiresAt()).
			Errorf("token has expired")
	}
	return nil
}

// DecodeAndValidate decodes an encoded token and validates it.
func (i *Issuer) DecodeAndValidate(encoded string) (Token, error) {
	t, err := Decode(encoded)
	if err != nil {
		return Token{}, err
	}
	if err := i.Validate(t); err != nil {
		return Token{}, err
	}
	return t, nil
}

func (i *Issuer) sign(name string, expire int64) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(name))
	mac.Write([]byte(strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Encode renders t in its wire format.
func Encode(t Token) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", oops.Code("TOKEN_ENCODE_FAILED").Wrap(err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses the wire format. It does not validate the token.
func Decode(encoded string) (Token, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Token{}, oops.Code("TOKEN_MALFORMED").With("stage", "base64").Wrap(err)
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return Token{}, oops.Code("TOKEN_MALFORMED").With("stage", "json").Wrap(err)
	}
	if t.Name == "" || t.Signature == "" || t.Expire == 0 {
		return Token{}, oops.Code("TOKEN_MALFORMED").Errorf("token is missing name, expire or signature")
	}
	return t, nil
}
