package personality

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	r := MustNewRegistry()
	list := r.List()
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"government_professional", "expert_assistant", "technical_analyst", "executive_brief", "custom"}, ids)

	gov := r.Get("government_professional")
	assert.Equal(t, "Government Professional", gov.Name)
	assert.True(t, strings.HasPrefix(gov.SystemPrompt, "You are a professional AI assistant for a government knowledge base system.\n\nPERSONALITY TRAITS:"))
	assert.True(t, strings.HasSuffix(gov.SystemPrompt, "- Never use asterisks, underscores, or other markdown symbols for formatting"))
	assert.Equal(t, "high", gov.ToneMarkers.Formality)

	exec := r.Get("executive_brief")
	assert.Contains(t, exec.SystemPrompt, `- Focus on "so what" and "now what"`)
	assert.Equal(t, "very high", exec.ToneMarkers.Brevity)
	assert.Equal(t, "very high", r.Get("technical_analyst").ToneMarkers.Technicality)
}

func TestGetUnknownFallsBackToDefault(t *testing.T) {
	r := MustNewRegistry()
	assert.Equal(t, r.Get(DefaultKey), r.Get("pirate"))
	assert.Equal(t, r.Get(DefaultKey), r.Get(""))
	assert.False(t, r.Has("pirate"))
	assert.True(t, r.Has("custom"))
}

func TestCreateCustom(t *testing.T) {
	r := MustNewRegistry()
	p := r.CreateCustom(CustomDefinition{SystemPrompt: "Talk like a librarian."})
	assert.Equal(t, "Custom Personality", p.Name)
	assert.Equal(t, "Custom configured personality", p.Description)
	assert.Equal(t, "Talk like a librarian.", p.SystemPrompt)
	assert.Equal(t, "Analyze the query according to the custom personality parameters provided.", p.AnalysisPrompt)
	assert.Equal(t, "medium", p.ToneMarkers.Formality)

	p = r.CreateCustom(CustomDefinition{Name: "Librarian", AnalysisPrompt: "a", ToneMarkers: &ToneMarkers{Brevity: "low"}})
	assert.Equal(t, "Librarian", p.Name)
	assert.Equal(t, "a", p.AnalysisPrompt)
	assert.Equal(t, "low", p.ToneMarkers.Brevity)
}

func TestBuildSystemPrompt(t *testing.T) {
	p := Personality{SystemPrompt: "base"}
	assert.Equal(t, "base", BuildSystemPrompt(p, ""))
	assert.Equal(t, "base\n\nADDITIONAL CONTEXT-SPECIFIC INSTRUCTIONS:\nbe kind", BuildSystemPrompt(p, "be kind"))
}

const overrideYAML = `personalities:
  - key: expert_assistant
    name: Friendly Expert
    description: overridden
    system_prompt: hi
    analysis_prompt: analyze
  - key: pirate
    name: Pirate
    description: arr
    system_prompt: Speak like a pirate.
    analysis_prompt: Analyze like a pirate.
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte(overrideYAML), 0o644))

	r := MustNewRegistry()
	require.NoError(t, r.LoadFile(path))
	assert.Equal(t, "Friendly Expert", r.Get("expert_assistant").Name)
	assert.Equal(t, "Speak like a pirate.", r.Get("pirate").SystemPrompt)

	list := r.List()
	require.Len(t, list, 6)
	assert.Equal(t, "expert_assistant", list[1].ID)
	assert.Equal(t, "pirate", list[5].ID)

	require.NoError(t, os.WriteFile(path, []byte("personalities:\n  - name: nokey\n"), 0o644))
	assert.Error(t, r.LoadFile(path))
	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("personalities: []\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := MustNewRegistry()
	reloaded := make(chan struct{}, 8)
	require.NoError(t, r.Watch(ctx, path, func() { reloaded <- struct{}{} }))

	require.NoError(t, os.WriteFile(path, []byte(overrideYAML), 0o644))
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("personalities file was not reloaded")
	}
	assert.Eventually(t, func() bool { return r.Has("pirate") }, 2*time.Second, 10*time.Millisecond)
}
