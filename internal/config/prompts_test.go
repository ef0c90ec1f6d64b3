package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompt(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestPromptStoreLoadsFiles(t *testing.T) {
	dir := t.TempDir()
	system := writePrompt(t, dir, "system.tailor.md", "  Tailor system prompt\n")
	user := writePrompt(t, dir, "user.tailor.md", "Resume: {resume_json}\nJob: {job_description}")

	cfg := &Config{AI: AIConfig{Tailor: OperationAIConfig{
		Prompts: PromptConfig{SystemFile: system, UserFile: user},
	}}}

	store, err := NewPromptStore(cfg)
	require.NoError(t, err)

	got := store.Get(OpTailor)
	assert.Equal(t, "Tailor system prompt", got.System)
	assert.Equal(t, "Resume: {resume_json}\nJob: {job_description}", got.User)
	assert.Equal(t, Prompts{}, store.Get(OpStructure))
	assert.ElementsMatch(t, []string{system, user}, store.Files())
}

func TestPromptStoreInlineWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	file := writePrompt(t, dir, "system.md", "from file")

	cfg := &Config{AI: AIConfig{Structure: OperationAIConfig{
		Prompts: PromptConfig{System: "inline text", SystemFile: file},
	}}}

	store, err := NewPromptStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, "inline text", store.Get(OpStructure).System)
}

func TestPromptStoreErrors(t *testing.T) {
	dir := t.TempDir()
	empty := writePrompt(t, dir, "empty.md", " \n\t ")

	tests := []struct {
		name     string
		prompts  PromptConfig
		errorMsg string
	}{
		{"missing file", PromptConfig{UserFile: filepath.Join(dir, "nope.md")}, "prompt file not found"},
		{"blank file", PromptConfig{SystemFile: empty}, "is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AI: AIConfig{Translate: OperationAIConfig{Prompts: tt.prompts}}}
			_, err := NewPromptStore(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestPromptStoreReload(t *testing.T) {
	dir := t.TempDir()
	file := writePrompt(t, dir, "user.md", "first version")

	cfg := &Config{AI: AIConfig{Tailor: OperationAIConfig{Prompts: PromptConfig{UserFile: file}}}}
	store, err := NewPromptStore(cfg)
	require.NoError(t, err)

	writePrompt(t, dir, "user.md", "second version")
	require.NoError(t, store.Reload())
	assert.Equal(t, "second version", store.Get(OpTailor).User)

	// a broken edit keeps the last good prompt
	writePrompt(t, dir, "user.md", "   ")
	assert.Error(t, store.Reload())
	assert.Equal(t, "second version", store.Get(OpTailor).User)
}

func TestPromptStoreConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	file := writePrompt(t, dir, "user.md", "prompt")
	cfg := &Config{AI: AIConfig{Tailor: OperationAIConfig{Prompts: PromptConfig{UserFile: file}}}}
	store, err := NewPromptStore(cfg)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Reload())
		}()
		go func() {
			defer wg.Done()
			assert.Equal(t, "prompt", store.Get(OpTailor).User)
		}()
	}
	wg.Wait()
}

func TestNilPromptStore(t *testing.T) {
	var store *PromptStore
	assert.Equal(t, Prompts{}, store.Get(OpTailor))
}
