package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"docbrain-go/internal/model"
	"docbrain-go/internal/personality"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/textutil"
)

// generateFallback is the answer when the model cannot be reached.
const generateFallback = "Unable to generate response. Please try again."

const analysisInstructions = `Analyze the user's query and provide:
1. Query type (factual, procedural, comparison, summarization, etc.)
2. Whether document search is needed
3. Key search terms if needed
4. Expected response format

Respond in JSON format:
{
    "queryType": "type",
    "needsSearch": true/false,
    "searchTerms": ["term1", "term2"],
    "responseFormat": "paragraph/bullet_points/numbered_list"
}`

var uncertaintyPhrases = []string{
	"not sure", "unclear", "might", "possibly", "perhaps",
	"i don't have", "cannot find", "no information",
}

func (r run) analyze(ctx context.Context, s State) Update {
	log.Debugf("[Agent] Analyzing query...")
	system := r.persona.personality.AnalysisPrompt + "\n\n" + analysisInstructions

	out, err := r.agent.llm.Generate(ctx, system, s.UserQuery)
	if err != nil {
		log.Warnf("[Agent] analysis error: %v", err)
		return Update{Analysis: ptr(defaultAnalysis())}
	}

	analysis, ok := parseAnalysis(out.Text)
	if !ok {
		analysis = defaultAnalysis()
	}
	return Update{
		Analysis: &analysis,
		Metadata: &Metadata{AnalysisTokens: out.TokenUsage},
	}
}

// parseAnalysis decodes the first balanced JSON object in text.
func parseAnalysis(text string) (Analysis, bool) {
	obj, ok := firstJSONObject(text)
	if !ok {
		return Analysis{}, false
	}
	var a Analysis
	if err := json.Unmarshal([]byte(obj), &a); err != nil {
		return Analysis{}, false
	}
	if a.SearchTerms == nil {
		a.SearchTerms = []string{}
	}
	return a, true
}

// firstJSONObject returns the first {...} span of text whose braces
// balance, ignoring braces inside JSON strings.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func (r run) shouldSearch(s State) bool {
	if len(s.SearchResults) > 0 {
		return false
	}
	return s.Analysis != nil && s.Analysis.NeedsSearch && r.searcher != nil
}

func (r run) search(ctx context.Context, s State) Update {
	log.Debugf("[Agent] Searching documents...")
	if r.searcher == nil {
		return Update{}
	}
	query := s.UserQuery
	if s.Analysis != nil && len(s.Analysis.SearchTerms) > 0 {
		query = strings.Join(s.Analysis.SearchTerms, " ")
	}

	found, err := r.searcher.Search(ctx, query)
	if err != nil {
		log.Warnf("[Agent] search error: %v", err)
		return Update{SearchResults: ptr([]model.RankedChunk{}), Sources: ptr([]string{})}
	}
	results, sources := found.Results, found.Sources
	if results == nil {
		results = []model.RankedChunk{}
	}
	if sources == nil {
		sources = []string{}
	}
	return Update{SearchResults: &results, Sources: &sources}
}

// systemInstruction assembles the generate-stage system prompt.
func systemInstruction(p persona, results []model.RankedChunk) string {
	texts := make([]string, 0, len(results))
	for _, res := range results {
		texts = append(texts, res.Text)
	}
	contextText := strings.Join(texts, "\n\n")
	hasContext := len(contextText) > 0

	first := "Provide a helpful response - no specific context available"
	second := "Clearly indicate you are providing general guidance"
	block := "\n[No specific context available - provide general guidance based on your knowledge]"
	if hasContext {
		first = "Base your answer ONLY on the provided context from the knowledge base"
		second = "If the context does not contain sufficient information, explicitly state this"
		block = "\n=== CONTEXT FROM KNOWLEDGE BASE ===\n" + contextText + "\n=== END CONTEXT ==="
	}

	var b strings.Builder
	b.WriteString(personality.BuildSystemPrompt(p.personality, p.instructions))
	b.WriteString("\n\nCRITICAL TASK INSTRUCTIONS:\n")
	fmt.Fprintf(&b, "1. %s\n", first)
	fmt.Fprintf(&b, "2. %s\n", second)
	b.WriteString("3. Do not make assumptions beyond the provided information\n")
	b.WriteString("4. Maintain consistency with your personality and communication style\n\n")
	b.WriteString(block)
	return b.String()
}

func (r run) generate(ctx context.Context, s State) Update {
	log.Debugf("[Agent] Generating response...")
	system := systemInstruction(r.persona, s.SearchResults)

	out, err := r.agent.llm.Generate(ctx, system, s.UserQuery)
	if err != nil {
		log.Errorf("[Agent] generation error: %v", err)
		return Update{FinalAnswer: ptr(generateFallback), Error: ptr(err.Error())}
	}
	return Update{
		FinalAnswer: &out.Text,
		Metadata: &Metadata{
			ResponseTokens: out.TokenUsage,
			TotalTokens:    s.Metadata.AnalysisTokens + out.TokenUsage,
		},
	}
}

// validate scores the answer with a fixed heuristic.
func validate(s State) Update {
	confidence := 0.5
	if len(s.Sources) > 0 {
		confidence += 0.2
	}
	if utf8.RuneCountInString(s.FinalAnswer) > 100 {
		confidence += 0.1
	}

	lowerAnswer := strings.ToLower(s.FinalAnswer)
	uncertain := slices.ContainsFunc(uncertaintyPhrases, func(p string) bool {
		return strings.Contains(lowerAnswer, p)
	})
	if uncertain {
		confidence -= 0.2
	}

	answerWords := make(map[string]struct{})
	for _, w := range textutil.SplitWhitespace(lowerAnswer) {
		answerWords[w] = struct{}{}
	}
	overlap := 0
	for _, w := range textutil.SplitWhitespace(strings.ToLower(s.UserQuery)) {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if _, ok := answerWords[w]; ok {
			overlap++
		}
	}
	if overlap > 2 {
		confidence += 0.1
	}

	confidence = math.Max(0, math.Min(1, confidence))
	return Update{
		Confidence: &confidence,
		Metadata:   &Metadata{Validated: true, UncertaintyDetected: uncertain},
	}
}

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	missingSpace   = regexp.MustCompile(`([.!?])([A-Z])`)
	bulletLine     = regexp.MustCompile(`(?m)^\s*[-•*]\s`)
	numberedLine   = regexp.MustCompile(`(?m)^\s*\d+\.\s`)
	headingLine    = regexp.MustCompile(`(?m)^#{1,6}\s`)
	labelLine      = regexp.MustCompile(`(?m)^[A-Z][^.!?]*:$`)
)

// format cleans the answer for plain-text display and records its shape.
func format(s State, now time.Time) Update {
	formatted := RemoveMarkdown(strings.TrimSpace(s.FinalAnswer))
	formatted = excessNewlines.ReplaceAllString(formatted, "\n\n")
	formatted = missingSpace.ReplaceAllString(formatted, "$1 $2")

	formatting := &Formatting{
		HasLists:       bulletLine.MatchString(formatted) || numberedLine.MatchString(formatted),
		HasSections:    headingLine.MatchString(formatted) || labelLine.MatchString(formatted),
		WordCount:      len(strings.Fields(formatted)),
		CharacterCount: utf8.RuneCountInString(formatted),
	}
	meta := &Metadata{EndTime: &now, Formatting: formatting}
	if s.Metadata.StartTime != nil {
		meta.ProcessingTime = now.Sub(*s.Metadata.StartTime).Milliseconds()
	}
	return Update{FinalAnswer: &formatted, Metadata: meta}
}
