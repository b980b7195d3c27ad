package transport

// AnalyzeRequest is the query string of GET /analisar-produto.
type AnalyzeRequest struct {
	Produto string `form:"produto"`
}

// PriceSummary is the price analysis returned to the caller.
type PriceSummary struct {
	ProdutoPesquisado string  `json:"produto_pesquisado"`
	TermoOtimizado    string  `json:"termo_otimizado"`
	TotalAnuncios     int     `json:"total_anuncios"`
	PrecoMedio        float64 `json:"preco_medio"`
	PrecoMinimo       float64 `json:"preco_minimo"`
	PrecoMaximo       float64 `json:"preco_maximo"`
	ExemploLink       string  `json:"exemplo_link"`
}
