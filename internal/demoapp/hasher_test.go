package demoapp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestArgon2idRoundTrip(t *testing.T) {
	h := Argon2idHasher{}

	encoded, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	ok, err := h.Verify("correct horse battery staple", encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify("wrong password", encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestArgon2idSaltsDiffer(t *testing.T) {
	h := Argon2idHasher{}
	a, err := h.Hash("same password")
	require.NoError(t, err)
	b, err := h.Hash("same password")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestArgon2idRejectsMalformed(t *testing.T) {
	h := Argon2idHasher{}
	for _, encoded := range []string{"", "plaintext", "$fake$pw", "$argon2id$v=19$bad"} {
		_, err := h.Verify("pw", encoded)
		require.Error(t, err, "encoded=%q", encoded)
	}
}

func TestFakeHasherRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		password := rapid.String().Draw(t, "password")
		h := FakeInsecureHasher{}

		encoded, err := h.Hash(password)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		ok, err := h.Verify(password, encoded)
		if err != nil || !ok {
			t.Fatalf("verify own hash: ok=%v err=%v", ok, err)
		}
		ok, _ = h.Verify(password+"x", encoded)
		if ok {
			t.Fatalf("verified a different password")
		}
	})
}
