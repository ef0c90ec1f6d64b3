package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Prompts is the custom prompt text of one operation. An empty field means
// the built-in template is used.
type Prompts struct {
	System string
	User   string
}

// PromptStore holds the custom prompts of every operation. It is safe for
// concurrent use; Reload swaps in freshly read files.
type PromptStore struct {
	mu      sync.RWMutex
	sources map[Operation]PromptConfig
	loaded  map[Operation]Prompts
}

// NewPromptStore reads the prompt files named in cfg. Every file must exist
// and hold non-blank text.
func NewPromptStore(cfg *Config) (*PromptStore, error) {
	s := &PromptStore{sources: make(map[Operation]PromptConfig)}
	for _, op := range Operations() {
		s.sources[op] = cfg.operation(op).Prompts
	}

	if err := s.validateFiles(); err != nil {
		return nil, err
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	s.logSummary()
	return s, nil
}

// Get returns the custom prompts for op. A nil store has none.
func (s *PromptStore) Get(op Operation) Prompts {
	if s == nil {
		return Prompts{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[op]
}

// Files lists the prompt files the store reads.
func (s *PromptStore) Files() []string {
	var files []string
	for _, op := range Operations() {
		src := s.sources[op]
		for _, f := range []string{src.SystemFile, src.UserFile} {
			if f != "" {
				files = append(files, f)
			}
		}
	}
	return files
}

// Reload rereads every prompt file. On error the previous prompts stay in
// place.
func (s *PromptStore) Reload() error {
	loaded := make(map[Operation]Prompts, len(s.sources))
	for _, op := range Operations() {
		src := s.sources[op]

		system, err := resolvePrompt(src.System, src.SystemFile, "system", op)
		if err != nil {
			return err
		}
		user, err := resolvePrompt(src.User, src.UserFile, "user", op)
		if err != nil {
			return err
		}
		loaded[op] = Prompts{System: system, User: user}
	}

	s.mu.Lock()
	s.loaded = loaded
	s.mu.Unlock()
	return nil
}

// resolvePrompt prefers inline text over the file.
func resolvePrompt(inline, file, promptType string, op Operation) (string, error) {
	if text := strings.TrimSpace(inline); text != "" {
		return text, nil
	}
	if file == "" {
		return "", nil
	}
	return loadPromptFromFile(file, promptType, op)
}

// loadPromptFromFile reads one prompt file and trims it.
func loadPromptFromFile(filePath, promptType string, op Operation) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", op, promptType, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", op, promptType, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", op, promptType, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", op, promptType, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)", op, promptType, absPath, len(trimmed))
	return trimmed, nil
}

// validateFiles reports every missing prompt file at once instead of
// stopping at the first.
func (s *PromptStore) validateFiles() error {
	var problems []string
	for _, op := range Operations() {
		src := s.sources[op]
		for promptType, file := range map[string]string{"system": src.SystemFile, "user": src.UserFile} {
			if file == "" {
				continue
			}
			absPath, err := filepath.Abs(file)
			if err != nil {
				problems = append(problems, fmt.Sprintf("invalid path for %s %s prompt: %s", op, promptType, file))
				continue
			}
			if _, err := os.Stat(absPath); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("%s %s prompt file not found: %s", op, promptType, absPath))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

func (s *PromptStore) logSummary() {
	count := 0
	for _, op := range Operations() {
		p := s.Get(op)
		if p.System != "" {
			count++
		}
		if p.User != "" {
			count++
		}
	}
	if count == 0 {
		log.Println("[CONFIG] No custom prompts configured, using built-in defaults")
		return
	}
	log.Printf("[CONFIG] Custom prompts loaded: %d", count)
}
