package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSamples(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTexts_TxtSkipsBlankLines(t *testing.T) {
	path := writeSamples(t, "data.txt", "first sample\n\n  second sample  \n\t\n")

	texts, err := loadTexts(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"first sample", "second sample"}, texts)
}

func TestLoadTexts_JSONLTextField(t *testing.T) {
	path := writeSamples(t, "data.jsonl",
		`{"text": "alpha"}
{"text": "  beta  "}
{"other": "ignored"}
`)

	texts, err := loadTexts(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, texts)
}

func TestLoadTexts_JSONLFlattensPromptCompletion(t *testing.T) {
	path := writeSamples(t, "pairs.jsonl", `{"prompt": "hi", "completion": "hello"}`)

	texts, err := loadTexts(path, "")
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "<|user|>: hi\n<|assistant|>: hello", texts[0])
}

func TestLoadTexts_FormatOverridesExtension(t *testing.T) {
	path := writeSamples(t, "data.txt", `{"text": "from jsonl"}`)

	texts, err := loadTexts(path, "jsonl")
	require.NoError(t, err)
	assert.Equal(t, []string{"from jsonl"}, texts)
}

func TestLoadTexts_UnknownFormat(t *testing.T) {
	path := writeSamples(t, "data.txt", "sample")

	_, err := loadTexts(path, "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestLoadTexts_MalformedJSONLNamesLine(t *testing.T) {
	path := writeSamples(t, "broken.jsonl", "{\"text\": \"ok\"}\nnot json\n")

	_, err := loadTexts(path, "jsonl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadTexts_MissingFile(t *testing.T) {
	_, err := loadTexts(filepath.Join(t.TempDir(), "absent.txt"), "")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
}
