package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/aretw0/chefmate/pkg/adapters/memory"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/persistence/middleware"
	"github.com/aretw0/chefmate/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func sampleSession(id string) *domain.Session {
	s := domain.NewSession(id)
	s.State.SetRecipeSet([]domain.Recipe{{Title: "Grandma's Secret Stew"}})
	return s
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunSessionStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "s1", sampleSession("s1")))

	stored, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Sealed)
	assert.Empty(t, stored.State.RecipeSet, "plaintext state must not reach the store")
	assert.Equal(t, "s1", stored.ID)

	loaded, err := secure.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.State.RecipeSet, 1)
	assert.Equal(t, "Grandma's Secret Stew", loaded.State.RecipeSet[0].Title)
	assert.Empty(t, loaded.Sealed)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, oldStore.Save(ctx, "rot", sampleSession("rot")))

	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := rotated.Load(ctx, "rot")
	require.NoError(t, err)
	assert.Equal(t, "Grandma's Secret Stew", loaded.State.RecipeSet[0].Title)

	newOnly := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})(underlying)
	_, err = newOnly.Load(ctx, "rot")
	assert.Error(t, err, "without the fallback key the old record is unreadable")

	// Saving through the rotated store re-seals with the new key.
	require.NoError(t, rotated.Save(ctx, "rot", loaded))
	_, err = newOnly.Load(ctx, "rot")
	assert.NoError(t, err)
}

func TestEncryptionMiddleware_RejectsPlaintext(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", sampleSession("plain")))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryptionMiddleware_InvalidKeyPanics(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	})
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)
	decoded, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, decoded)

	_, err = middleware.DecodeKey("not base64!")
	assert.Error(t, err)
	_, err = middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestChain_OrderIsOutermostFirst(t *testing.T) {
	var trail []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.SessionStore) ports.SessionStore {
			return tracingStore{SessionStore: next, name: name, trail: &trail}
		}
	}

	store := middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	require.NoError(t, store.Save(context.Background(), "x", domain.NewSession("x")))
	assert.Equal(t, []string{"outer", "inner"}, trail)
}

type tracingStore struct {
	ports.SessionStore
	name  string
	trail *[]string
}

func (s tracingStore) Save(ctx context.Context, id string, session *domain.Session) error {
	*s.trail = append(*s.trail, s.name)
	return s.SessionStore.Save(ctx, id, session)
}
