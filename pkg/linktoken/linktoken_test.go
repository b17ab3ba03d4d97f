package linktoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec() *Codec {
	return NewCodec("test-signing-secret", 14*24*time.Hour)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := testCodec()

	payload := Payload{
		OwnerID:       42,
		Assessments:   []string{"mood-check-in", "sleep-diary"},
		Mode:          "self-entry",
		ShareResults:  true,
		PendingClient: true,
	}

	token, err := codec.Encode(payload)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), decoded.OwnerID)
	assert.Equal(t, []string{"mood-check-in", "sleep-diary"}, decoded.Assessments)
	assert.Equal(t, "self-entry", decoded.Mode)
	assert.Empty(t, decoded.ClientSlug)
	assert.True(t, decoded.ShareResults)
	assert.True(t, decoded.PendingClient)
	assert.NotEmpty(t, decoded.Nonce)
}

func TestEncodeGeneratesDistinctTokens(t *testing.T) {
	codec := testCodec()
	payload := Payload{OwnerID: 1, Assessments: []string{"a"}, Mode: "linked", ClientSlug: "jane-doe"}

	first, err := codec.Encode(payload)
	require.NoError(t, err)
	second, err := codec.Encode(payload)
	require.NoError(t, err)

	// 语义相同的重签必须产生不同令牌
	assert.NotEqual(t, first, second)
}

func TestDecodeRejectsTamperedToken(t *testing.T) {
	codec := testCodec()
	token, err := codec.Encode(Payload{OwnerID: 7, Assessments: []string{"a"}, Mode: "linked"})
	require.NoError(t, err)

	// 翻转签名部分的一个字节
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = codec.Decode(string(tampered))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	token, err := testCodec().Encode(Payload{OwnerID: 7, Assessments: []string{"a"}, Mode: "linked"})
	require.NoError(t, err)

	other := NewCodec("another-secret", 14*24*time.Hour)
	_, err = other.Decode(token)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := testCodec().Decode("not-a-token")
	assert.ErrorIs(t, err, ErrBadSignature)
}

// signRaw 直接签发自定义声明，用于构造边界令牌
func signRaw(t *testing.T, secret string, claims linkClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestDecodeRejectsOldSignature(t *testing.T) {
	secret := "test-signing-secret"
	codec := NewCodec(secret, 14*24*time.Hour)

	token := signRaw(t, secret, linkClaims{
		Owner: 3, Mode: "linked", Nonce: "abc",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now().Add(-15 * 24 * time.Hour)),
		},
	})

	_, err := codec.Decode(token)
	assert.ErrorIs(t, err, ErrExpired)

	// 签名层过期检查独立于行状态，放宽maxAge后同一令牌可解析
	_, err = codec.DecodeWithMaxAge(token, 30*24*time.Hour)
	assert.NoError(t, err)
}

func TestDecodeRejectsMissingIssuedAt(t *testing.T) {
	secret := "test-signing-secret"
	token := signRaw(t, secret, linkClaims{Owner: 3, Mode: "linked", Nonce: "abc"})

	_, err := NewCodec(secret, time.Hour).Decode(token)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRejectsIncompletePayload(t *testing.T) {
	secret := "test-signing-secret"
	codec := NewCodec(secret, time.Hour)

	cases := []linkClaims{
		{Mode: "linked", Nonce: "abc"}, // 缺owner
		{Owner: 3, Nonce: "abc"},       // 缺mode
		{Owner: 3, Mode: "linked"},     // 缺nonce
	}
	for _, claims := range cases {
		claims.RegisteredClaims = jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(time.Now())}
		_, err := codec.Decode(signRaw(t, secret, claims))
		assert.ErrorIs(t, err, ErrMalformed)
	}
}

func TestNewNonce(t *testing.T) {
	first, err := NewNonce()
	require.NoError(t, err)
	second, err := NewNonce()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
