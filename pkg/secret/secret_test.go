package secret

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestSealerRoundTrip(t *testing.T) {
	key, err := DeriveKey("passphrase")
	require.NoError(t, err)
	sealer, err := NewSealer(key)
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte(`[{"name":"session"}]`))
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.False(t, bytes.Contains(sealed, []byte("session")))

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"session"}]`, string(opened))
}

func TestSealerRejectsOtherKeyAndPlaintext(t *testing.T) {
	keyA, _ := DeriveKey("a")
	keyB, _ := DeriveKey("b")
	sealerA, _ := NewSealer(keyA)
	sealerB, _ := NewSealer(keyB)

	sealed, err := sealerA.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = sealerB.Open(sealed)
	require.Error(t, err)

	_, err = sealerA.Open([]byte("payload"))
	assert.ErrorIs(t, err, ErrNotSealed)
}

func TestNewSealerKeySize(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	require.Error(t, err)
	_, err = DeriveKey("")
	require.Error(t, err)
}

func TestKeyringKeyCreatesOnce(t *testing.T) {
	keyring.MockInit()

	first, err := KeyringKey(KeyringService, KeyringUser)
	require.NoError(t, err)
	second, err := KeyringKey(KeyringService, KeyringUser)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestKeyringKeyReadFailure(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus unavailable"))
	defer keyring.MockInit()

	_, err := KeyringKey(KeyringService, KeyringUser)
	require.Error(t, err)
}

func TestResolveSealer(t *testing.T) {
	keyring.MockInit()

	sealer, err := ResolveSealer("", false)
	require.NoError(t, err)
	assert.Nil(t, sealer)

	sealer, err = ResolveSealer("pass", false)
	require.NoError(t, err)
	assert.NotNil(t, sealer)

	sealer, err = ResolveSealer("", true)
	require.NoError(t, err)
	assert.NotNil(t, sealer)
}
