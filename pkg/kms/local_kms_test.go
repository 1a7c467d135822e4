package kms

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const speculosMnemonic = "glory promote mansion idle axis finger extra february uncover one trip resource lawn turtle enact monster seven myth punch hobby comfort wild raise skin"

var suiPath = []uint32{0x8000002c, 0x80000310, 0x80000000, 0x80000000, 0x80000000}

func TestLocalKMSSignVerify(t *testing.T) {
	k, err := NewFromMnemonic(speculosMnemonic, "")
	require.NoError(t, err)

	pub, err := k.PublicKey(suiPath)
	require.NoError(t, err)
	assert.Equal(t, "6eea79cdaaa4e01eec6449f0c0efcc128bb43bfcd56f9eaeed81075122c3665a", hex.EncodeToString(pub))

	msg := []byte("digest")
	sig, err := k.Sign(suiPath, msg)
	require.NoError(t, err)
	assert.Len(t, sig, 64)
	assert.NoError(t, k.Verify(suiPath, msg, sig))

	other := append([]uint32{}, suiPath...)
	other[2] = 0x80000001
	assert.ErrorIs(t, k.Verify(other, msg, sig), ErrInvalidSignature)
}

func TestLocalKMSLock(t *testing.T) {
	k, err := NewFromMnemonic(speculosMnemonic, "")
	require.NoError(t, err)
	_, err = k.Sign(suiPath, []byte("x"))
	require.NoError(t, err)

	k.Lock()
	if _, err := k.Sign(suiPath, []byte("x")); !errors.Is(err, ErrLocked) {
		t.Fatalf("锁定后签名应返回 ErrLocked, 得到 %v", err)
	}

	if _, err := NewFromMnemonic("not a mnemonic", ""); err == nil {
		t.Error("无效助记词应返回错误")
	}
}
