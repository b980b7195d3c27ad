// Package extraction turns supplier catalog PDFs into product records by
// asking a vision-capable model to read them.
package extraction

// Keys of a product record as requested from the model.
const (
	FieldName            = "nome do produto"
	FieldIsKit           = "é kit"
	FieldCategory        = "categoria do produto"
	FieldCode            = "código do produto"
	FieldPrice           = "preço do produto"
	FieldOptimizedTitles = "titulos_otimizados_ia"
)

// Product is one record returned by the model. Records are trusted verbatim:
// no schema is enforced and unknown keys are kept.
type Product map[string]any

// Name returns the product name, or "" when absent or not a string.
func (p Product) Name() string {
	return p.stringField(FieldName)
}

// Code returns the product SKU, or "" when absent or not a string.
func (p Product) Code() string {
	return p.stringField(FieldCode)
}

// IsKit reports the model's kit flag.
func (p Product) IsKit() bool {
	v, _ := p[FieldIsKit].(bool)
	return v
}

// OptimizedTitles returns the SEO titles the model produced.
func (p Product) OptimizedTitles() []string {
	raw, ok := p[FieldOptimizedTitles].([]any)
	if !ok {
		return nil
	}
	titles := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			titles = append(titles, s)
		}
	}
	return titles
}

func (p Product) stringField(key string) string {
	v, _ := p[key].(string)
	return v
}
