package extraction

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const plainAnswer = `[{"nome do produto":"Kit Panelas","é kit":true,"preço do produto":"R$ 199,90","titulos_otimizados_ia":["a","b","c"]}]`

func TestParseProducts_FencedAndUnfencedAreEquivalent(t *testing.T) {
	fenced := "```json\n" + plainAnswer + "\n```"

	fromFenced, err := ParseProducts(fenced)
	if err != nil {
		t.Fatalf("fenced: unexpected error: %v", err)
	}
	fromPlain, err := ParseProducts(plainAnswer)
	if err != nil {
		t.Fatalf("plain: unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fromFenced, fromPlain) {
		t.Fatalf("expected identical records, got %v vs %v", fromFenced, fromPlain)
	}
	if len(fromPlain) != 1 {
		t.Fatalf("expected 1 record, got %d", len(fromPlain))
	}

	p := fromPlain[0]
	if p.Name() != "Kit Panelas" || !p.IsKit() {
		t.Fatalf("unexpected record %v", p)
	}
	if titles := p.OptimizedTitles(); len(titles) != 3 {
		t.Fatalf("expected 3 titles, got %v", titles)
	}
}

func TestParseProducts_TextAroundArray(t *testing.T) {
	answer := "Aqui estão os produtos encontrados:\n" + plainAnswer + "\nEspero ter ajudado."

	products, err := ParseProducts(answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 record, got %d", len(products))
	}
}

func TestParseProducts_NoBrackets(t *testing.T) {
	cases := []string{
		"Não encontrei produtos nestas páginas.",
		"{\"nome do produto\": \"x\"}",
		"] invertido [",
		"",
	}
	for _, answer := range cases {
		products, err := ParseProducts(answer)
		if !errors.Is(err, ErrNoJSONArray) {
			t.Fatalf("%q: expected ErrNoJSONArray, got %v", answer, err)
		}
		if len(products) != 0 {
			t.Fatalf("%q: expected no records, got %d", answer, len(products))
		}
	}
}

func TestParseProducts_MalformedJSON(t *testing.T) {
	_, err := ParseProducts(`[{"nome do produto": "x",}]`)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if errors.Is(err, ErrNoJSONArray) {
		t.Fatalf("expected a decode error, not ErrNoJSONArray")
	}
}

func TestParseProducts_KeepsNumbersExact(t *testing.T) {
	products, err := ParseProducts(`[{"preço do produto": 19.90}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	price, ok := products[0][FieldPrice].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", products[0][FieldPrice])
	}
	if price.String() != "19.90" {
		t.Fatalf("expected 19.90, got %s", price)
	}
}

func TestParseProducts_EmptyArray(t *testing.T) {
	products, err := ParseProducts("```json\n[]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", products)
	}
}

func TestMarshalProducts_NilIsEmptyArray(t *testing.T) {
	data, err := MarshalProducts(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected [], got %s", data)
	}
}

func TestCleanResponse(t *testing.T) {
	got := CleanResponse("  ```json\n[1]\n```  ")
	if got != "[1]" {
		t.Fatalf("expected [1], got %q", got)
	}
}
