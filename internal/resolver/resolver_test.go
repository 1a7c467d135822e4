package resolver

import (
	"encoding/hex"
	"errors"
	"testing"

	"sui-signer/internal/stream"
	"sui-signer/internal/sui"
	"sui-signer/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gasCoinRecord = "000101d37642110000000028400dbdcfeda8e1e64ebbf5710ccf5a67bfa6e7f945c92bc8611e0cb44b7219de100e943900000000006fb21feead027da4873295affd6c4f3618fe176fa2fbf3e7b5ef1d9463b31e212074fe3dd473a96335b6f5b5b5a0be3e4f033ecc0a020ee9ef75894f5ab0b33dc760130f0000000000"
	coinRecord    = "000101d276421100000000281c12be5429384d00eeef61242f3aebabeac3012549dd6f888dc1087c4d00da808096980000000000001d3f2643305760226e518c9b5a96165383808dd977971f73dea971543b0be488201d5b19bfcc11a93e8966df9067eb024a09728158a7a06295bd653d4be181145d60130f0000000000"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// scan 驱动扫描器，从 store 中取块
func scan(t *testing.T, s *Scanner, store *transport.Store) (*sui.ObjectData, error) {
	t.Helper()
	for {
		data, err := s.Scan()
		if !errors.Is(err, stream.ErrNeedChunk) {
			return data, err
		}
		h, ok := s.Want()
		require.True(t, ok)
		chunk, ok := store.Get(h)
		require.True(t, ok)
		require.NoError(t, s.Load(chunk))
	}
}

func objectStream(t *testing.T, records ...[]byte) (*stream.Cursor, *transport.Store) {
	t.Helper()
	store := transport.NewStore()
	return stream.New(store.AddParam(EncodeObjects(records))), store
}

func TestScanFindsRecord(t *testing.T) {
	gas, coin := mustHex(t, gasCoinRecord), mustHex(t, coinRecord)
	junk := []byte("not an object record")
	objects, store := objectStream(t, junk, coin, gas)

	s := New(objects, sui.ComputeObjectDigest(gas))
	data, err := scan(t, s, store)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, sui.SuiCoinType, data.Type)
	assert.Equal(t, uint64(966004240), data.Amount)
	assert.Equal(t, 3, s.Scanned())

	// 主游标未移动
	assert.Equal(t, 0, objects.Pos())

	s = New(objects, sui.ComputeObjectDigest(coin))
	data, err = scan(t, s, store)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, uint64(10_000_000), data.Amount)
	assert.Equal(t, 2, s.Scanned(), "找到后停止扫描")
}

func TestScanMisses(t *testing.T) {
	gas := mustHex(t, gasCoinRecord)
	junk := []byte("not an object record")
	objects, store := objectStream(t, junk, gas)

	tests := []struct {
		name   string
		target sui.ObjectDigest
	}{
		{"不存在的摘要", sui.ObjectDigest{1, 2, 3}},
		{"摘要匹配但无法解析", sui.ComputeObjectDigest(junk)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := scan(t, New(objects, tt.target), store)
			require.NoError(t, err)
			assert.Nil(t, data)
		})
	}

	data, err := scan(t, New(stream.New(transport.ZeroHash), sui.ComputeObjectDigest(gas)), store)
	require.NoError(t, err)
	assert.Nil(t, data, "空对象流")
}

func TestScanTrailingBytes(t *testing.T) {
	rec := append(mustHex(t, gasCoinRecord), 0)
	objects, store := objectStream(t, rec)
	data, err := scan(t, New(objects, sui.ComputeObjectDigest(rec)), store)
	require.NoError(t, err)
	assert.Nil(t, data, "记录尾部多余字节视为无法解析")
}

func TestScanTruncated(t *testing.T) {
	gas := mustHex(t, gasCoinRecord)
	full := EncodeObjects([][]byte{gas})
	store := transport.NewStore()
	objects := stream.New(store.AddParam(full[:len(full)-10]))

	_, err := scan(t, New(objects, sui.ComputeObjectDigest(gas)), store)
	assert.ErrorIs(t, err, sui.ErrMalformed)
}
