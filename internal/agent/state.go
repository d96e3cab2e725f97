package agent

import (
	"time"

	"docbrain-go/internal/model"
)

// Response formats an analysis may ask for.
const (
	FormatParagraph    = "paragraph"
	FormatBulletPoints = "bullet_points"
	FormatNumberedList = "numbered_list"
)

// Analysis is what the analyze stage learns about a query.
type Analysis struct {
	QueryType      string   `json:"queryType"`
	NeedsSearch    bool     `json:"needsSearch"`
	SearchTerms    []string `json:"searchTerms"`
	ResponseFormat string   `json:"responseFormat"`
}

func defaultAnalysis() Analysis {
	return Analysis{
		QueryType:      "general",
		NeedsSearch:    true,
		SearchTerms:    []string{},
		ResponseFormat: FormatParagraph,
	}
}

// Formatting describes the shape of the final answer.
type Formatting struct {
	HasLists       bool `json:"hasLists"`
	HasSections    bool `json:"hasSections"`
	WordCount      int  `json:"wordCount"`
	CharacterCount int  `json:"characterCount"`
}

// Metadata accumulates across stages. Zero fields are left out of JSON.
type Metadata struct {
	StartTime           *time.Time  `json:"startTime,omitempty"`
	Model               string      `json:"model,omitempty"`
	Provider            string      `json:"provider,omitempty"`
	Personality         string      `json:"personality,omitempty"`
	AnalysisTokens      int         `json:"analysisTokens,omitempty"`
	ResponseTokens      int         `json:"responseTokens,omitempty"`
	TotalTokens         int         `json:"totalTokens,omitempty"`
	Validated           bool        `json:"validated,omitempty"`
	UncertaintyDetected bool        `json:"uncertaintyDetected,omitempty"`
	EndTime             *time.Time  `json:"endTime,omitempty"`
	ProcessingTime      int64       `json:"processingTime,omitempty"`
	Formatting          *Formatting `json:"formatting,omitempty"`
	Error               string      `json:"error,omitempty"`
}

// merge returns m with every non-zero field of p written over it.
func (m Metadata) merge(p Metadata) Metadata {
	if p.StartTime != nil {
		m.StartTime = p.StartTime
	}
	if p.Model != "" {
		m.Model = p.Model
	}
	if p.Provider != "" {
		m.Provider = p.Provider
	}
	if p.Personality != "" {
		m.Personality = p.Personality
	}
	if p.AnalysisTokens != 0 {
		m.AnalysisTokens = p.AnalysisTokens
	}
	if p.ResponseTokens != 0 {
		m.ResponseTokens = p.ResponseTokens
	}
	if p.TotalTokens != 0 {
		m.TotalTokens = p.TotalTokens
	}
	m.Validated = m.Validated || p.Validated
	m.UncertaintyDetected = m.UncertaintyDetected || p.UncertaintyDetected
	if p.EndTime != nil {
		m.EndTime = p.EndTime
	}
	if p.ProcessingTime != 0 {
		m.ProcessingTime = p.ProcessingTime
	}
	if p.Formatting != nil {
		m.Formatting = p.Formatting
	}
	if p.Error != "" {
		m.Error = p.Error
	}
	return m
}

// State is the value passed from stage to stage. Stages never modify it;
// they return an Update that Apply folds into a new State.
type State struct {
	UserQuery     string
	SearchResults []model.RankedChunk
	Sources       []string
	Analysis      *Analysis
	FinalAnswer   string
	Confidence    float64
	Metadata      Metadata
	Error         string
}

// Update holds the fields a stage changes. Nil fields are inherited.
type Update struct {
	SearchResults *[]model.RankedChunk
	Sources       *[]string
	Analysis      *Analysis
	FinalAnswer   *string
	Confidence    *float64
	Metadata      *Metadata
	Error         *string
}

// Apply returns a copy of s with u applied. Metadata is merged field by field.
func (s State) Apply(u Update) State {
	if u.SearchResults != nil {
		s.SearchResults = *u.SearchResults
	}
	if u.Sources != nil {
		s.Sources = *u.Sources
	}
	if u.Analysis != nil {
		a := *u.Analysis
		s.Analysis = &a
	}
	if u.FinalAnswer != nil {
		s.FinalAnswer = *u.FinalAnswer
	}
	if u.Confidence != nil {
		s.Confidence = *u.Confidence
	}
	if u.Metadata != nil {
		s.Metadata = s.Metadata.merge(*u.Metadata)
	}
	if u.Error != nil {
		s.Error = *u.Error
	}
	return s
}

// Context is retrieval the caller already ran. When SearchResults is
// non-empty the pipeline skips its own search.
type Context struct {
	SearchResults []model.RankedChunk
	Sources       []string
}

// Result is the public outcome of Process.
type Result struct {
	Success    bool     `json:"success"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
	Metadata   Metadata `json:"metadata"`
	TokenCount int      `json:"tokenCount"`
}

func ptr[T any](v T) *T { return &v }
