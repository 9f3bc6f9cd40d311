package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ragkb/ragkb/internal/ai"
)

// RefusalText is the exact reply used when the indexed documents cannot
// answer the question.
const RefusalText = "I don’t have enough information in the indexed documents."

var citationPattern = regexp.MustCompile(`\[\d+\]`)

// Source is one context chunk the answer may cite, numbered from 1 in the
// same order the chunks were handed to the model.
type Source struct {
	Citation   int     `json:"citation"`
	DocTitle   string  `json:"doc_title"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Trace   *Trace   `json:"trace,omitempty"`
}

type Composer struct {
	retriever *Retriever
	completer ai.ICompleter
}

func NewComposer(retriever *Retriever, completer ai.ICompleter) *Composer {
	return &Composer{retriever: retriever, completer: completer}
}

// Answer runs the full question pipeline: retrieve context, refuse when
// nothing relevant was found, otherwise prompt the model and enforce that the
// reply carries at least one citation. When explain is set the timed trace is
// attached to the result.
func (c *Composer) Answer(ctx context.Context, question string, topK int, docIDs []int64, explain bool) (*Answer, error) {
	totalStart := time.Now()
	trace := &Trace{TopK: topK}

	hits, err := c.retriever.Retrieve(ctx, question, topK, docIDs, trace)
	if err != nil {
		return nil, err
	}
	trace.Hits = len(hits)

	if len(hits) == 0 {
		result := &Answer{Answer: RefusalText, Sources: []Source{}}
		if explain {
			trace.Add("Guardrail refusal", 0, "no relevant context")
			trace.TotalMs = roundMs(time.Since(totalStart))
			result.Trace = trace
		}
		return result, nil
	}

	contextStart := time.Now()
	contextBlock := BuildContext(hits)
	trace.Add("Build context", time.Since(contextStart), fmt.Sprintf("chunks=%d", len(hits)))

	llmStart := time.Now()
	answer, err := c.completer.Complete(ctx, SystemPrompt(), UserPrompt(question, contextBlock))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	trace.Add("LLM answer", time.Since(llmStart), "model="+c.completer.ModelName())

	if answer == "" {
		answer = RefusalText
	}
	if answer != RefusalText && !citationPattern.MatchString(answer) {
		answer = answer + " [1]"
	}

	sourcesStart := time.Now()
	sources := make([]Source, 0, len(hits))
	for i, hit := range hits {
		sources = append(sources, Source{
			Citation:   i + 1,
			DocTitle:   hit.Meta.DocTitle,
			Filename:   hit.Meta.Filename,
			ChunkIndex: hit.Meta.ChunkIndex,
			Text:       hit.Text,
			Score:      hit.Distance,
		})
	}
	trace.Add("Assemble sources", time.Since(sourcesStart), fmt.Sprintf("sources=%d", len(sources)))

	result := &Answer{Answer: answer, Sources: sources}
	if explain {
		trace.TotalMs = roundMs(time.Since(totalStart))
		result.Trace = trace
	}
	return result, nil
}

// BuildContext renders retrieved chunks as numbered context blocks for the
// prompt.
func BuildContext(hits []Hit) string {
	lines := make([]string, 0, len(hits)*2)
	for i, hit := range hits {
		title := hit.Meta.DocTitle
		if title == "" {
			title = "Untitled"
		}
		filename := hit.Meta.Filename
		if filename == "" {
			filename = "unknown"
		}
		lines = append(lines, fmt.Sprintf("[%d] Title: %s | File: %s | Chunk: %d", i+1, title, filename, hit.Meta.ChunkIndex))
		lines = append(lines, hit.Text)
	}
	return strings.Join(lines, "\n")
}

func SystemPrompt() string {
	return "You are a careful assistant. Answer only using the provided context. " +
		"If the answer is not fully contained in the context, reply exactly: " +
		"\"" + RefusalText + "\" " +
		"Do not add any other text. " +
		"When you provide an answer, include citations like [1], [2] that refer to the context blocks."
}

func UserPrompt(question, context string) string {
	return "Context:\n" + context + "\n\nQuestion:\n" + question + "\n"
}
