package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONArray is returned when a response has no [ ... ] section.
var ErrNoJSONArray = errors.New("extraction: response contains no JSON array")

// CleanResponse removes Markdown code-fence markers and surrounding whitespace.
func CleanResponse(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// IsolateArray returns the substring between the first '[' and the last ']'.
func IsolateArray(text string) (string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseProducts cleans a raw model answer and decodes the product array in it.
// Numbers are kept as json.Number so prices round-trip exactly.
func ParseProducts(raw string) ([]Product, error) {
	array, ok := IsolateArray(CleanResponse(raw))
	if !ok {
		return nil, ErrNoJSONArray
	}

	dec := json.NewDecoder(strings.NewReader(array))
	dec.UseNumber()

	var products []Product
	if err := dec.Decode(&products); err != nil {
		return nil, fmt.Errorf("extraction: decode products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// MarshalProducts renders products as an indented JSON array. A nil list is
// written as [] rather than null.
func MarshalProducts(products []Product) ([]byte, error) {
	if products == nil {
		products = []Product{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(products); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
