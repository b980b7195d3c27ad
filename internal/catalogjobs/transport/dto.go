package transport

import "time"

// SubmitRequest holds the optional form fields of an extraction upload.
type SubmitRequest struct {
	TamanhoLote int `form:"tamanho_lote" validate:"omitempty,min=1,max=50"`
}

// JobResponse describes an extraction job.
type JobResponse struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	Arquivo       string     `json:"arquivo"`
	TamanhoLote   int        `json:"tamanho_lote"`
	Paginas       int        `json:"paginas"`
	Lotes         int        `json:"lotes"`
	LotesVazios   int        `json:"lotes_vazios"`
	LotesComFalha int        `json:"lotes_com_falha"`
	TotalProdutos int        `json:"total_produtos"`
	Erro          string     `json:"erro,omitempty"`
	ResultadoURL  string     `json:"resultado_url,omitempty"`
	CriadoEm      time.Time  `json:"criado_em"`
	IniciadoEm    *time.Time `json:"iniciado_em,omitempty"`
	FinalizadoEm  *time.Time `json:"finalizado_em,omitempty"`
}
