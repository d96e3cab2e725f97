// Package personality holds the named instruction bundles that shape how the
// agent analyzes queries and words its answers.
package personality

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"docbrain-go/pkg/log"
)

// DefaultKey is used whenever a requested key is unknown.
const DefaultKey = "government_professional"

// CustomKey names the built-in customizable bundle.
const CustomKey = "custom"

//go:embed personalities.yaml
var builtinYAML []byte

// ToneMarkers describe a personality in four coarse levels.
type ToneMarkers struct {
	Formality    string `yaml:"formality" json:"formality"`
	Friendliness string `yaml:"friendliness" json:"friendliness"`
	Technicality string `yaml:"technicality" json:"technicality"`
	Brevity      string `yaml:"brevity" json:"brevity"`
}

// Personality is one instruction bundle.
type Personality struct {
	Key            string      `yaml:"key" json:"id"`
	Name           string      `yaml:"name" json:"name"`
	Description    string      `yaml:"description" json:"description"`
	SystemPrompt   string      `yaml:"system_prompt" json:"systemPrompt"`
	AnalysisPrompt string      `yaml:"analysis_prompt" json:"analysisPrompt"`
	ToneMarkers    ToneMarkers `yaml:"tone_markers" json:"toneMarkers"`
}

// Summary is the public listing of a personality, without its prompts.
type Summary struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ToneMarkers ToneMarkers `json:"toneMarkers"`
}

// CustomDefinition is the input of CreateCustom. Empty fields take defaults.
type CustomDefinition struct {
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	SystemPrompt   string       `json:"systemPrompt"`
	AnalysisPrompt string       `json:"analysisPrompt"`
	ToneMarkers    *ToneMarkers `json:"toneMarkers"`
}

type bundleFile struct {
	Personalities []Personality `yaml:"personalities"`
}

// Registry is a concurrency-safe lookup of personalities by key.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	bundles map[string]Personality
}

// NewRegistry returns a registry holding the built-in personalities.
func NewRegistry() (*Registry, error) {
	r := &Registry{}
	bundles, order, err := parse(builtinYAML)
	if err != nil {
		return nil, fmt.Errorf("parse built-in personalities: %w", err)
	}
	if _, ok := bundles[DefaultKey]; !ok {
		return nil, errors.New("built-in personalities lack the default")
	}
	r.bundles, r.order = bundles, order
	return r, nil
}

// MustNewRegistry is NewRegistry for package-level and test use.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

func parse(data []byte) (map[string]Personality, []string, error) {
	var f bundleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, err
	}
	bundles := make(map[string]Personality, len(f.Personalities))
	order := make([]string, 0, len(f.Personalities))
	for _, p := range f.Personalities {
		if p.Key == "" {
			return nil, nil, errors.New("personality without key")
		}
		if _, dup := bundles[p.Key]; !dup {
			order = append(order, p.Key)
		}
		bundles[p.Key] = p
	}
	return bundles, order, nil
}

// LoadFile merges the personalities in path over the current set. Entries
// with a known key replace it; new keys are appended to the listing.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read personalities file: %w", err)
	}
	bundles, order, err := parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range order {
		if _, ok := r.bundles[key]; !ok {
			r.order = append(r.order, key)
		}
		r.bundles[key] = bundles[key]
	}
	log.Infof("[Personality] loaded %d personalities from %s", len(order), path)
	return nil
}

// Get returns the personality for key, or the default when key is unknown.
func (r *Registry) Get(key string) Personality {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.bundles[key]; ok {
		return p
	}
	return r.bundles[DefaultKey]
}

// Has reports whether key names a registered personality.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bundles[key]
	return ok
}

// List returns every personality in registration order.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.order))
	for _, key := range r.order {
		p := r.bundles[key]
		out = append(out, Summary{ID: key, Name: p.Name, Description: p.Description, ToneMarkers: p.ToneMarkers})
	}
	return out
}

// CreateCustom builds a personality from def, filling gaps from the
// built-in custom bundle. The result is not registered.
func (r *Registry) CreateCustom(def CustomDefinition) Personality {
	base := r.Get(CustomKey)
	p := Personality{
		Key:            CustomKey,
		Name:           def.Name,
		Description:    def.Description,
		SystemPrompt:   def.SystemPrompt,
		AnalysisPrompt: def.AnalysisPrompt,
		ToneMarkers:    base.ToneMarkers,
	}
	if p.Name == "" {
		p.Name = "Custom Personality"
	}
	if p.Description == "" {
		p.Description = "Custom configured personality"
	}
	if p.AnalysisPrompt == "" {
		p.AnalysisPrompt = base.AnalysisPrompt
	}
	if def.ToneMarkers != nil {
		p.ToneMarkers = *def.ToneMarkers
	}
	return p
}

// BuildSystemPrompt appends contextInstructions, when present, to the
// personality's system prompt.
func BuildSystemPrompt(p Personality, contextInstructions string) string {
	prompt := p.SystemPrompt
	if contextInstructions != "" {
		prompt += "\n\nADDITIONAL CONTEXT-SPECIFIC INSTRUCTIONS:\n" + contextInstructions
	}
	return prompt
}
