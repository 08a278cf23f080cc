package wallet

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestIsAddress(t *testing.T) {
	valid := []string{
		"0x52908400098527886E0F7030069857D2E4169EE7",
		"0xde709f2102306220921060314715629080e2fb77",
		"  0x27b1fdb04752bbc536007a920d24acb045561c26 ",
	}
	for _, a := range valid {
		require.True(t, IsAddress(a), a)
	}

	invalid := []string{
		"",
		"0x",
		"52908400098527886E0F7030069857D2E4169EE7",
		"0x52908400098527886E0F7030069857D2E4169EE",
		"0x52908400098527886E0F7030069857D2E4169EE7aa",
		"0xZZ908400098527886E0F7030069857D2E4169EE7",
	}
	for _, a := range invalid {
		require.False(t, IsAddress(a), a)
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("0x52908400098527886E0F7030069857D2E4169EE7")
	require.NoError(t, err)
	require.Equal(t, "0x52908400098527886e0f7030069857d2e4169ee7", got)

	_, err = Normalize("bogus")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSignAndRecover(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	addr := AddressOf(key)

	msg := "SkillsPassport login: 123456|1700000000000"
	sig, err := SignMessage(key, msg)
	require.NoError(t, err)

	got, err := RecoverAddress(msg, sig)
	require.NoError(t, err)
	require.Equal(t, addr, got)

	// otro mensaje recupera otra dirección
	other, err := RecoverAddress(msg+"x", sig)
	require.NoError(t, err)
	require.NotEqual(t, addr, other)
}

func TestRecover_AcceptsZeroOneRecoveryID(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	msg := "hello"
	sig, err := SignMessage(key, msg)
	require.NoError(t, err)

	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)
	raw[64] -= 27

	got, err := RecoverAddress(msg, hexutil.Encode(raw))
	require.NoError(t, err)
	require.Equal(t, AddressOf(key), got)
}

func TestRecover_RejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"0x1234",
		"not-hex",
		"0x" + strings.Repeat("ab", 65), // v = 0xab
	}
	for _, sig := range cases {
		_, err := RecoverAddress("msg", sig)
		require.ErrorIs(t, err, ErrInvalidSignature, sig)
	}
}

func TestParsePrivateKey(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	h := hexutil.Encode(crypto.FromECDSA(key))
	parsed, err := ParsePrivateKey(h)
	require.NoError(t, err)
	require.Equal(t, AddressOf(key), AddressOf(parsed))

	parsed, err = ParsePrivateKey(strings.TrimPrefix(h, "0x"))
	require.NoError(t, err)
	require.Equal(t, AddressOf(key), AddressOf(parsed))

	_, err = ParsePrivateKey("0x01")
	require.ErrorIs(t, err, ErrInvalidKey)
}
