package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunksMergesShortParagraphs(t *testing.T) {
	text := "第一条规则。\n\n第二条规则。\n\n第三条规则。"
	chunks := SplitChunks(text, 500)

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "第一条规则")
	assert.Contains(t, chunks[0], "第三条规则")
}

func TestSplitChunksRespectsBudget(t *testing.T) {
	long := strings.Repeat("营养风险筛查", 30) // 180 runes
	text := long + "\n\n" + long + "\n\n" + long

	chunks := SplitChunks(text, 200)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 200)
	}
}

func TestSplitChunksKeepsOversizedParagraphWhole(t *testing.T) {
	oversized := strings.Repeat("规则", 400) // 800 runes, no blank lines
	chunks := SplitChunks(oversized, 500)

	require.Len(t, chunks, 1)
	assert.Equal(t, oversized, chunks[0])
}

func TestSplitChunksSkipsBlankInput(t *testing.T) {
	assert.Empty(t, SplitChunks("", 500))
	assert.Empty(t, SplitChunks("\n\n  \n\n", 500))
}
