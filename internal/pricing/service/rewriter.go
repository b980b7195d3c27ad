package service

import (
	"context"
	"fmt"
	"strings"

	"catalog_backend/platform/ai/gemini"
)

// MaxQueryWords bounds the rewritten search phrase.
const MaxQueryWords = 4

const rewritePrompt = `Transforme o nome de produto abaixo em um termo de busca curto para e-commerce, com no máximo %d palavras.
Responda apenas com o termo, em texto puro, sem aspas, sem markdown e sem explicações.

Produto: %s`

// TextModel is the subset of the model client used for query rewriting.
type TextModel interface {
	Generate(ctx context.Context, prompt string, file *gemini.File) (string, error)
}

// ModelRewriter rewrites product names into search phrases with a language model.
type ModelRewriter struct {
	model TextModel
}

// NewModelRewriter creates a rewriter backed by model.
func NewModelRewriter(model TextModel) *ModelRewriter {
	return &ModelRewriter{model: model}
}

// Rewrite asks the model for a search phrase and normalizes its answer.
// An answer with no usable words falls back to the original product name.
func (r *ModelRewriter) Rewrite(ctx context.Context, product string) (string, error) {
	answer, err := r.model.Generate(ctx, fmt.Sprintf(rewritePrompt, MaxQueryWords, product), nil)
	if err != nil {
		return "", fmt.Errorf("rewrite query: %w", err)
	}
	if phrase := NormalizeQuery(answer); phrase != "" {
		return phrase, nil
	}
	return NormalizeQuery(product), nil
}

// NormalizeQuery strips quoting and markdown, collapses whitespace and keeps
// at most MaxQueryWords words.
func NormalizeQuery(text string) string {
	text = quoteReplacer.Replace(text)
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		if len(words) > MaxQueryWords {
			words = words[:MaxQueryWords]
		}
		return strings.Join(words, " ")
	}
	return ""
}

var quoteReplacer = strings.NewReplacer("```json", " ", "`", " ", "*", " ", "#", " ", "\"", " ", "“", " ", "”", " ")
