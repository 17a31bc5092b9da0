package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isglobal-brge/seclink/fhe"
	"github.com/isglobal-brge/seclink/internal/storage"
	"github.com/isglobal-brge/seclink/matrix"
)

func fileStore(t *testing.T) *storage.Config {
	return &storage.Config{Backend: "file", Dir: t.TempDir()}
}

func TestPipelineWithStorage(t *testing.T) {
	ctx := context.Background()
	common := Common{Storage: fileStore(t)}

	out, err := runKeyGen(ctx, &KeyGenInput{Common: common, Relinearize: true})
	require.NoError(t, err)
	keys := out.(*KeyGenOutput)
	assert.Equal(t, 4096, keys.Slots)
	assert.Equal(t, "pk", keys.PublicKey.Handle.Kind())
	assert.Empty(t, keys.PublicKey.Data)

	left := [][]int64{{1, 0, 1, 1}, {0, 1, 1, 0}, {1, 1, 0, 0}, {0, 0, 0, 1}}
	right := [][]int64{{1, 0, 1}, {0, 1, 1}, {1, 1, 0}, {1, 0, 0}}

	out, err = runEncryptLeft(ctx, &EncryptInput{Common: common, PlainMatrix: PlainMatrix{Data: left}, PublicKey: keys.PublicKey})
	require.NoError(t, err)
	l := out.(*MatrixOutput)
	assert.Equal(t, "left", l.Kind)
	assert.Equal(t, 4, l.Ciphertexts)

	out, err = runEncryptRight(ctx, &EncryptInput{Common: common, PlainMatrix: PlainMatrix{Data: right}, PublicKey: keys.PublicKey})
	require.NoError(t, err)
	r := out.(*MatrixOutput)
	assert.Equal(t, 2, r.Ciphertexts)

	out, err = runMultiply(ctx, &MultiplyInput{
		Common:     common,
		Left:       l.Matrix,
		Right:      r.Matrix,
		GaloisKeys: keys.GaloisKeys,
		RelinKey:   keys.RelinKey,
		Workers:    2,
	})
	require.NoError(t, err)
	prod := out.(*MatrixOutput)
	assert.Equal(t, 4, prod.Rows)
	assert.Equal(t, 3, prod.Cols)

	out, err = runShape(ctx, &ShapeInput{Common: common, Matrix: prod.Matrix})
	require.NoError(t, err)
	assert.Equal(t, "product", out.(*MatrixOutput).Kind)

	out, err = runDecrypt(ctx, &DecryptInput{Common: common, Matrix: prod.Matrix, SecretKey: keys.SecretKey})
	require.NoError(t, err)
	dec := out.(*DecryptOutput)

	a, _ := matrix.FromRows(left)
	b, _ := matrix.FromRows(right)
	want, err := matrix.Mul(a, b, 0)
	require.NoError(t, err)
	for i := range dec.Data {
		assert.Equal(t, want.Row(i), dec.Data[i])
	}

	out, err = runDecrypt(ctx, &DecryptInput{Common: common, Matrix: prod.Matrix, SecretKey: keys.SecretKey, EltBytes: 1})
	require.NoError(t, err)
	packed, err := matrix.Pack(want, 1)
	require.NoError(t, err)
	assert.Equal(t, packed, out.(*DecryptOutput).Packed)
}

func TestInlinePackedMultiplyPlain(t *testing.T) {
	ctx := context.Background()
	out, err := runKeyGen(ctx, &KeyGenInput{})
	require.NoError(t, err)
	keys := out.(*KeyGenOutput)
	require.NotEmpty(t, keys.PublicKey.Data)

	out, err = runGenCLKs(ctx, &GenCLKsInput{Rows: 8, Cols: 4, Seed: "ours", EltBytes: 1})
	require.NoError(t, err)
	clks := out.(PlainMatrix)
	assert.Len(t, clks.Packed, 32)

	out, err = runEncryptLeft(ctx, &EncryptInput{PlainMatrix: clks, PublicKey: keys.PublicKey})
	require.NoError(t, err)
	l := out.(*MatrixOutput)

	right := [][]int64{{1}, {1}, {1}, {1}}
	out, err = runMultiplyPlain(ctx, &MultiplyInput{Left: l.Matrix, RightPlain: PlainMatrix{Data: right}})
	require.NoError(t, err)
	prod := out.(*MatrixOutput)

	out, err = runDecrypt(ctx, &DecryptInput{Matrix: prod.Matrix, SecretKey: keys.SecretKey})
	require.NoError(t, err)
	dec := out.(*DecryptOutput)

	a, err := matrix.Unpack(clks.Packed, 8, 4, 1, matrix.RowMajor)
	require.NoError(t, err)
	sums, err := matrix.MulVec(a, []int64{1, 1, 1, 1}, 0)
	require.NoError(t, err)
	for i := range sums {
		assert.Equal(t, []int64{sums[i]}, dec.Data[i])
	}
}

func TestCommandErrors(t *testing.T) {
	ctx := context.Background()

	_, err := runEncryptLeft(ctx, &EncryptInput{})
	assert.Error(t, err)

	_, err = runMultiply(ctx, &MultiplyInput{Left: BlobRef{Handle: "emat-00"}})
	assert.ErrorContains(t, err, "no storage configured")

	_, err = runGenCLKs(ctx, &GenCLKsInput{Rows: 0, Cols: 4})
	assert.Error(t, err)

	_, err = commands["keygen"](ctx, []byte("{not json"))
	assert.ErrorContains(t, err, "failed to parse input")

	_, err = runKeyGen(ctx, &KeyGenInput{Common: Common{Params: fhe.Params{LogN: 13, PlaintextModulus: 40961}}})
	assert.Error(t, err)
}

func TestSealOpenCommands(t *testing.T) {
	ctx := context.Background()
	out, err := runTransportKeygen()
	require.NoError(t, err)
	kp := out.(*TransportKeygenOutput)

	out, err = runSeal(ctx, &SealInput{Blob: BlobRef{Data: []byte("matrix")}, RecipientPK: kp.PublicKey, Label: "emat"})
	require.NoError(t, err)
	sealed := out.(*SealOutput)

	common := Common{Storage: fileStore(t)}
	out, err = runOpen(ctx, &OpenInput{Common: common, Sealed: sealed.Sealed, RecipientSK: kp.SecretKey, Label: "emat", Kind: "emat"})
	require.NoError(t, err)
	ref := out.(*OpenOutput).Blob
	assert.Equal(t, "emat", ref.Handle.Kind())

	_, err = runOpen(ctx, &OpenInput{Sealed: sealed.Sealed, RecipientSK: kp.SecretKey, Label: "other"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	assert.True(t, newLogger("debug").Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, newLogger("").Enabled(context.Background(), slog.LevelInfo))
}

func captureStdout(t *testing.T, fn func()) []byte {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	fn()
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

func TestOutputJSON(t *testing.T) {
	out := captureStdout(t, func() {
		outputJSON(&MatrixOutput{Rows: 2, Cols: 3, Kind: "product", Ciphertexts: 2})
	})
	var got MatrixOutput
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, MatrixOutput{Rows: 2, Cols: 3, Kind: "product", Ciphertexts: 2}, got)

	out = captureStdout(t, func() { outputError("multiply failed: bad shape") })
	var e ErrorOutput
	require.NoError(t, json.Unmarshal(out, &e))
	assert.Equal(t, "multiply failed: bad shape", e.Error)
}
