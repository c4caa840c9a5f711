// Package prompts loads the DM prompt templates. Built-in defaults are
// embedded; setting a prompts directory overrides individual templates by
// file name.
package prompts

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed defaults/*.md
var defaults embed.FS

// Template names.
const (
	SystemPrompt = "system_prompt"
	GameRules    = "game_rules"
	StatusUpdate = "status_update"
)

// Set resolves prompt templates, preferring files in Dir over the embedded
// defaults. The zero value serves the defaults only.
type Set struct {
	Dir string
}

func NewSet(dir string) *Set {
	return &Set{Dir: dir}
}

// Get returns the template body for name (without the .md suffix).
func (s *Set) Get(name string) (string, error) {
	if s.Dir != "" {
		path := filepath.Join(s.Dir, name+".md")
		body, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(body)), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read prompt %s: %w", path, err)
		}
	}

	body, err := defaults.ReadFile("defaults/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	return strings.TrimSpace(string(body)), nil
}
