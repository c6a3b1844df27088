package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorBLOBRoundTrip(t *testing.T) {
	vec := []float32{0.1, -0.5, 3.25, 0}

	blob, err := float32ArrayToBLOB(vec)
	require.NoError(t, err)

	got, err := blobToFloat32Array(blob)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestBlobToFloat32ArrayRejectsTruncatedBlob(t *testing.T) {
	_, err := blobToFloat32Array([]byte{0x01, 0x02, 0x03})
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	assert.InDelta(t, 1.0, float64(cosineSimilarity(a, a)), 1e-6)
	assert.InDelta(t, 0.0, float64(cosineSimilarity(a, b)), 1e-6)
	assert.InDelta(t, -1.0, float64(cosineSimilarity(a, []float32{-1, 0, 0})), 1e-6)

	// Mismatched dimensions and zero vectors degrade to zero similarity.
	assert.Equal(t, float32(0), cosineSimilarity(a, []float32{1, 0}))
	assert.Equal(t, float32(0), cosineSimilarity(a, []float32{0, 0, 0}))
}
