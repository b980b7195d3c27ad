package handler

import (
	"errors"
	"net/http"
	"strings"

	"catalog_backend/internal/marketplace"
	"catalog_backend/internal/pricing/service"
	"catalog_backend/internal/pricing/transport"
	"catalog_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	msgMissingProduct = "Por favor, informe o nome do produto no parâmetro 'produto'."
	msgNoListings     = "Nenhum anúncio encontrado para este produto."
	msgInvalidRequest = "invalid request"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/analisar-produto", h.AnalyzeProduct)
}

func (h *Handler) AnalyzeProduct(c *gin.Context) {
	var req transport.AnalyzeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	// A missing product is answered with 200 and a plain message.
	if strings.TrimSpace(req.Produto) == "" {
		httpkit.Text(c, http.StatusOK, msgMissingProduct)
		return
	}

	summary, err := h.svc.Analyze(c.Request.Context(), req.Produto)
	if err != nil {
		var upstream *marketplace.UpstreamError
		switch {
		case errors.As(err, &upstream):
			_ = c.Error(err)
			contentType := upstream.ContentType
			if contentType == "" {
				contentType = "application/json; charset=utf-8"
			}
			c.Data(upstream.StatusCode, contentType, upstream.Body)
		case errors.Is(err, service.ErrNoListings):
			httpkit.Text(c, http.StatusOK, msgNoListings)
		default:
			_ = c.Error(err)
			httpkit.HandleError(c, err)
		}
		return
	}

	httpkit.OK(c, summary)
}
