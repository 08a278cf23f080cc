package token

import (
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const addr = "0x27B1fdb04752bbc536007a920d24acb045561c26"

func fixedIssuer(at time.Time) *Issuer {
	i := NewIssuer("test-secret", time.Hour, "")
	i.now = func() time.Time { return at }
	return i
}

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	i := fixedIssuer(now)

	raw, exp, err := i.Issue(addr)
	require.NoError(t, err)
	require.WithinDuration(t, now.Add(time.Hour), exp, time.Second)

	c, err := i.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(addr), c.Address)
	require.Equal(t, strings.ToLower(addr), c.Subject)
	require.Equal(t, DefaultIssuer, c.Issuer)
	require.NotNil(t, c.NotBefore)
}

func TestParse_Rejects(t *testing.T) {
	now := time.Now()
	i := fixedIssuer(now)
	raw, _, err := i.Issue(addr)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := i.Parse("  ")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := i.Parse("not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("other secret", func(t *testing.T) {
		other := fixedIssuer(now)
		other.Secret = []byte("other")
		_, err := other.Parse(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("other issuer", func(t *testing.T) {
		other := fixedIssuer(now)
		other.Iss = "someone-else"
		_, err := other.Parse(raw)
		require.ErrorIs(t, err, ErrInvalidIssuer)
	})
	t.Run("expired beyond leeway", func(t *testing.T) {
		later := fixedIssuer(now.Add(time.Hour + time.Minute))
		_, err := later.Parse(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("within leeway", func(t *testing.T) {
		later := fixedIssuer(now.Add(time.Hour + 10*time.Second))
		_, err := later.Parse(raw)
		require.NoError(t, err)
	})
	t.Run("alg none", func(t *testing.T) {
		tk := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, jwtv5.MapClaims{
			"address": strings.ToLower(addr), "sub": strings.ToLower(addr),
			"iss": DefaultIssuer, "exp": now.Add(time.Hour).Unix(),
		})
		s, err := tk.SignedString(jwtv5.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = i.Parse(s)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestIssue_Errors(t *testing.T) {
	_, _, err := NewIssuer("", 0, "").Issue(addr)
	require.ErrorIs(t, err, ErrEmptySecret)
	_, _, err = NewIssuer("s", 0, "").Issue("0xnope")
	require.Error(t, err)
}
