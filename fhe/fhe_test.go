package fhe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/isglobal-brge/seclink/slots"
)

func newTestContext(t *testing.T) (*Context, *KeySet, *Keys) {
	t.Helper()
	ctx, err := NewContext(Params{})
	require.NoError(t, err)
	ks, err := ctx.GenerateKeys(KeyOptions{Relinearize: true})
	require.NoError(t, err)
	keys, err := ctx.LoadKeySet(ks)
	require.NoError(t, err)
	return ctx, ks, keys
}

func rampVector(n int) []int64 {
	v := make([]int64, n)
	for i := range v {
		v[i] = int64(i % 97)
	}
	return v
}

func TestParamsDefaults(t *testing.T) {
	p := Params{}.WithDefaults()
	assert.Equal(t, 12, p.LogN)
	assert.Equal(t, DefaultPlaintextModulus, p.PlaintextModulus)
	assert.NoError(t, p.Validate())

	p = Params{LogN: 14}.WithDefaults()
	assert.Equal(t, LargePlaintextModulus, p.PlaintextModulus)
	assert.NoError(t, p.Validate())
}

func TestParamsValidate(t *testing.T) {
	assert.ErrorIs(t, Params{LogN: 13, PlaintextModulus: 40961}.Validate(), ErrParams)
	assert.ErrorIs(t, Params{LogN: 11, PlaintextModulus: 40961}.Validate(), ErrParams)
	assert.ErrorIs(t, Params{LogN: 12, PlaintextModulus: 65536}.Validate(), ErrParams)

	_, err := NewContext(Params{LogN: 12, PlaintextModulus: 257})
	assert.ErrorIs(t, err, ErrParams)
}

func TestRotationOffsets(t *testing.T) {
	ctx, err := NewContext(Params{})
	require.NoError(t, err)
	offsets := ctx.RotationOffsets([]int{3, 2048 + 5, -1, 0})
	assert.Equal(t, []int{1, 2, 3, 4, 5, 8, 16, 32, 64, 128, 256, 512, 1024, 2047}, offsets)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ctx, _, keys := newTestContext(t)
	v := rampVector(ctx.Slots())
	v[0] = -1

	cts, err := ctx.EncryptVectors([][]int64{v}, keys.Public)
	require.NoError(t, err)
	out, err := ctx.DecryptVectors(cts, keys.Secret)
	require.NoError(t, err)

	v[0] = int64(ctx.PlaintextModulus()) - 1
	assert.Equal(t, v, out[0])
}

func TestEncodeRejectsWrongLength(t *testing.T) {
	ctx, err := NewContext(Params{})
	require.NoError(t, err)
	_, err = ctx.Encode(make([]int64, 10))
	assert.ErrorIs(t, err, ErrParams)
}

func TestRotateMatchesClearRotation(t *testing.T) {
	ctx, ks, keys := newTestContext(t)
	v := rampVector(ctx.Slots())
	cts, err := ctx.EncryptVectors([][]int64{v}, keys.Public)
	require.NoError(t, err)

	eval := ctx.NewEvaluator(keys.Evaluation)
	for _, k := range []int{0, 1, 5, 300, -7} {
		rot, err := eval.Rotate(cts[0], k)
		require.NoError(t, err)
		out, err := ctx.DecryptVectors([]*rlwe.Ciphertext{rot}, keys.Secret)
		require.NoError(t, err)
		assert.Equal(t, slots.RotateHalves(v, k), out[0], "offset %d", k)
	}

	_, err = eval.ShallowCopy().Rotate(cts[0], 3)
	assert.NoError(t, err)

	// without keys
	bare := ctx.NewEvaluator(nil)
	_, err = bare.Rotate(cts[0], 1)
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = ctx.LoadEvaluationKeys(nil, ks.RelinKey)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestMulAddRelinearize(t *testing.T) {
	ctx, _, keys := newTestContext(t)
	a := rampVector(ctx.Slots())
	b := slots.Rotate(a, 11)
	cts, err := ctx.EncryptVectors([][]int64{a, b}, keys.Public)
	require.NoError(t, err)

	eval := ctx.NewEvaluator(keys.Evaluation)
	require.True(t, eval.CanRelinearize())

	prod, err := eval.Mul(cts[0], cts[1])
	require.NoError(t, err)
	require.NoError(t, eval.Add(prod, prod))
	prod, err = eval.Relinearize(prod)
	require.NoError(t, err)
	assert.Equal(t, 1, prod.Degree())

	pt, err := ctx.Encode(b)
	require.NoError(t, err)
	plainProd, err := eval.Mul(cts[0], pt)
	require.NoError(t, err)

	out, err := ctx.DecryptVectors([]*rlwe.Ciphertext{prod, plainProd}, keys.Secret)
	require.NoError(t, err)
	for i := range a {
		want := a[i] * b[i] % int64(ctx.PlaintextModulus())
		require.Equal(t, 2*want%int64(ctx.PlaintextModulus()), out[0][i])
		require.Equal(t, want, out[1][i])
	}
}

func TestKeyLoading(t *testing.T) {
	ctx, ks, _ := newTestContext(t)

	_, err := ctx.LoadPublicKey(nil)
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = ctx.LoadSecretKey(Blob{})
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = ctx.LoadPublicKey(Blob{1, 2, 3})
	assert.Error(t, err)

	evk, err := ctx.LoadEvaluationKeys(ks.GaloisKeys, nil)
	require.NoError(t, err)
	assert.False(t, ctx.NewEvaluator(evk).CanRelinearize())
	assert.Len(t, evk.GetGaloisKeysList(), len(ctx.RotationOffsets(nil)))

	cp := ks.PublicKey.Bytes()
	cp[0] ^= 0xff
	assert.NotEqual(t, cp[0], ks.PublicKey[0])
}

func TestCiphertextSerialization(t *testing.T) {
	ctx, _, keys := newTestContext(t)
	v := rampVector(ctx.Slots())
	cts, err := ctx.EncryptVectors([][]int64{v}, keys.Public)
	require.NoError(t, err)

	b, err := ctx.MarshalCiphertext(cts[0])
	require.NoError(t, err)
	ct, err := ctx.UnmarshalCiphertext(b)
	require.NoError(t, err)
	out, err := ctx.DecryptVectors([]*rlwe.Ciphertext{ct}, keys.Secret)
	require.NoError(t, err)
	assert.Equal(t, v, out[0])
}
