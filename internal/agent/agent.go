// Package agent runs the fixed answer pipeline: analyze the query, search
// when needed, generate, validate and format the answer.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docbrain-go/internal/model"
	"docbrain-go/internal/personality"
	"docbrain-go/pkg/llm"
	"docbrain-go/pkg/log"
)

// apologyAnswer is returned when the pipeline fails unexpectedly.
const apologyAnswer = "I encountered an error processing your request. Please try again."

// Stage names a pipeline step.
type Stage string

const (
	StageAnalyze  Stage = "analyze_query"
	StageSearch   Stage = "search_documents"
	StageGenerate Stage = "generate_response"
	StageValidate Stage = "validate_output"
	StageFormat   Stage = "format_response"
	StageDone     Stage = "done"
)

// Searcher looks up knowledge base chunks for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (model.SearchResult, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string) (model.SearchResult, error)

func (f SearcherFunc) Search(ctx context.Context, query string) (model.SearchResult, error) {
	return f(ctx, query)
}

// Options configures an Agent.
type Options struct {
	Model              string
	Provider           string
	Personality        string
	CustomInstructions string
}

// persona is the personality snapshot one Process call works with.
type persona struct {
	key          string
	personality  personality.Personality
	instructions string
	adhoc        bool // built by SetCustomPersonality, not from the registry
}

// Agent answers queries with a language model. It is safe for concurrent
// use; each Process call works on its own State.
type Agent struct {
	llm      llm.LanguageModel
	registry *personality.Registry
	model    string
	provider string
	now      func() time.Time

	mu       sync.RWMutex
	active   persona
	searcher Searcher
}

// New returns an Agent using lm for every model call.
func New(lm llm.LanguageModel, registry *personality.Registry, opts Options) *Agent {
	a := &Agent{
		llm:      lm,
		registry: registry,
		model:    opts.Model,
		provider: opts.Provider,
		now:      time.Now,
	}
	a.SetPersonality(opts.Personality, opts.CustomInstructions)
	return a
}

// SetPersonality switches to the registered personality key. Unknown keys
// select the default personality.
func (a *Agent) SetPersonality(key, customInstructions string) personality.Personality {
	if !a.registry.Has(key) {
		key = personality.DefaultKey
	}
	p := a.registry.Get(key)
	a.mu.Lock()
	a.active = persona{key: key, personality: p, instructions: customInstructions}
	a.mu.Unlock()
	log.Infof("[Agent] Personality set to: %s", p.Name)
	return p
}

// SetCustomPersonality switches to a personality built from def.
func (a *Agent) SetCustomPersonality(def personality.CustomDefinition, customInstructions string) personality.Personality {
	p := a.registry.CreateCustom(def)
	a.mu.Lock()
	a.active = persona{key: personality.CustomKey, personality: p, instructions: customInstructions, adhoc: true}
	a.mu.Unlock()
	log.Infof("[Agent] Personality set to: %s", p.Name)
	return p
}

// RefreshPersonality reloads the active personality from the registry,
// keeping custom instructions. Custom definitions are left alone.
func (a *Agent) RefreshPersonality() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active.adhoc {
		return
	}
	a.active.personality = a.registry.Get(a.active.key)
}

// Personality returns the active personality key and bundle.
func (a *Agent) Personality() (string, personality.Personality) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active.key, a.active.personality
}

// SetSearcher installs the search capability used when the caller supplies
// no context. A nil searcher disables the search stage.
func (a *Agent) SetSearcher(s Searcher) {
	a.mu.Lock()
	a.searcher = s
	a.mu.Unlock()
}

// Process runs the pipeline for query. It never returns an error: failures
// are reported in the Result.
func (a *Agent) Process(ctx context.Context, query string, c Context) Result {
	return a.ProcessWithProgress(ctx, query, c, nil)
}

// ProcessWithProgress is Process with a callback invoked as each stage starts.
func (a *Agent) ProcessWithProgress(ctx context.Context, query string, c Context, progress func(Stage)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Agent] processing error: %v", r)
			res = Result{
				Success:  false,
				Answer:   apologyAnswer,
				Sources:  []string{},
				Metadata: Metadata{Error: fmt.Sprint(r)},
			}
		}
	}()

	a.mu.RLock()
	r := run{agent: a, persona: a.active, searcher: a.searcher, progress: progress}
	a.mu.RUnlock()

	start := a.now()
	sources := c.Sources
	if sources == nil {
		sources = []string{}
	}
	state := State{
		UserQuery:     query,
		SearchResults: c.SearchResults,
		Sources:       sources,
		Confidence:    0.5,
		Metadata: Metadata{
			StartTime:   &start,
			Model:       a.model,
			Provider:    a.provider,
			Personality: r.persona.key,
		},
	}

	state = r.execute(ctx, state)
	if state.Sources == nil {
		state.Sources = []string{}
	}
	return Result{
		Success:    true,
		Answer:     state.FinalAnswer,
		Sources:    state.Sources,
		Confidence: state.Confidence,
		Metadata:   state.Metadata,
		TokenCount: state.Metadata.TotalTokens,
	}
}

// run carries what one Process call needs besides its State.
type run struct {
	agent    *Agent
	persona  persona
	searcher Searcher
	progress func(Stage)
}

// execute drives the stage graph from analyze to done.
func (r run) execute(ctx context.Context, s State) State {
	stage := StageAnalyze
	for stage != StageDone {
		if r.progress != nil {
			r.progress(stage)
		}
		switch stage {
		case StageAnalyze:
			s = s.Apply(r.analyze(ctx, s))
			if r.shouldSearch(s) {
				stage = StageSearch
			} else {
				stage = StageGenerate
			}
		case StageSearch:
			s = s.Apply(r.search(ctx, s))
			stage = StageGenerate
		case StageGenerate:
			s = s.Apply(r.generate(ctx, s))
			stage = StageValidate
		case StageValidate:
			s = s.Apply(validate(s))
			stage = StageFormat
		case StageFormat:
			s = s.Apply(format(s, r.agent.now()))
			stage = StageDone
		}
	}
	if r.progress != nil {
		r.progress(StageDone)
	}
	return s
}
