// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package gametoken_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/pkg/errutil"
	"github.com/holomush/gatehouse/pkg/gametoken"
)

// fakeClock is a settable clock for deterministic expiry checks.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newIssuer(t *testing.T, clock *fakeClock) *gametoken.Issuer {
	t.Helper()
	issuer, err := gametoken.NewIssuer("shared-secret", gametoken.WithClock(clock.Now))
	require.NoError(t, err)
	return issuer
}

func TestNewIssuer(t *testing.T) {
	t.Run("rejects empty secret", func(t *testing.T) {
		issuer, err := gametoken.NewIssuer("")
		assert.Nil(t, issuer)
		errutil.AssertErrorCode(t, err, "TOKEN_SECRET_EMPTY")
	})

	t.Run("uses default ttl", func(t *testing.T) {
		issuer, err := gametoken.NewIssuer("s")
		require.NoError(t, err)
		assert.Equal(t, gametoken.DefaultTTL, issuer.TTL())
	})

	t.Run("ignores non-positive ttl", func(t *testing.T) {
		issuer, err := gametoken.NewIssuer("s", gametoken.WithTTL(0))
		require.NoError(t, err)
		assert.Equal(t, gametoken.DefaultTTL, issuer.TTL())
	})
}

func TestIssuer_IssueAndValidate(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	issuer := newIssuer(t, clock)

	tok := issuer.Issue("bob")
	assert.Equal(t, "bob", tok.Name)
	assert.Equal(t, clock.t.Add(gametoken.DefaultTTL).UnixMilli(), tok.Expire)
	assert.Len(t, tok.Signature, 64)

	t.Run("valid immediately after issuance", func(t *testing.T) {
		assert.NoError(t, issuer.Validate(tok))
	})

	t.Run("valid at the expiry instant", func(t *testing.T) {
		c := &fakeClock{t: tok.ExpiresAt()}
		assert.NoError(t, newIssuer(t, c).Validate(tok))
	})

	t.Run("invalid strictly after expiry", func(t *testing.T) {
		c := &fakeClock{t: tok.ExpiresAt().Add(time.Millisecond)}
		errutil.AssertErrorCode(t, newIssuer(t, c).Validate(tok), "TOKEN_EXPIRED")
	})

	t.Run("tampered signature fails", func(t *testing.T) {
		bad := tok
		flipped := byte('a')
		if tok.Signature[0] == 'a' {
			flipped = 'b'
		}
		bad.Signature = string(flipped) + tok.Signature[1:]
		errutil.AssertErrorCode(t, issuer.Validate(bad), "TOKEN_BAD_SIGNATURE")
	})

	t.Run("tampered name fails", func(t *testing.T) {
		bad := tok
		bad.Name = "alice"
		errutil.AssertErrorCode(t, issuer.Validate(bad), "TOKEN_BAD_SIGNATURE")
	})

	t.Run("extended expiry fails", func(t *testing.T) {
		bad := tok
		bad.Expire += 60_000
		errutil.AssertErrorCode(t, issuer.Validate(bad), "TOKEN_BAD_SIGNATURE")
	})

	t.Run("different secret fails", func(t *testing.T) {
		other, err := gametoken.NewIssuer("other-secret", gametoken.WithClock(clock.Now))
		require.NoError(t, err)
		errutil.AssertErrorCode(t, other.Validate(tok), "TOKEN_BAD_SIGNATURE")
	})
}

func TestEncodeDecode(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer := newIssuer(t, clock)
	tok := issuer.Issue("bob")

	encoded, err := gametoken.Encode(tok)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "bob", fields["name"])
	assert.Contains(t, fields, "expire")
	assert.Contains(t, fields, "token")

	decoded, err := issuer.DecodeAndValidate(encoded)
	require.NoError(t, err)
	assert.Equal(t, tok, decoded)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "not base64", encoded: "!!!"},
		{name: "not json", encoded: base64.StdEncoding.EncodeToString([]byte("nope"))},
		{name: "missing fields", encoded: base64.StdEncoding.EncodeToString([]byte(`{"name":"bob"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gametoken.Decode(tt.encoded)
			errutil.AssertErrorCode(t, err, "TOKEN_MALFORMED")
		})
	}
}
