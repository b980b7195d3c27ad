package handler

import (
	"io"
	"net/http"

	"catalog_backend/internal/catalogjobs/service"
	"catalog_backend/internal/catalogjobs/transport"
	"catalog_backend/platform/httpkit"
	"catalog_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	formFile            = "arquivo"
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidJobID     = "invalid job id"
	msgMissingFile      = "arquivo is required"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Submit)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/resultado", h.Result)
}

func (h *Handler) Submit(c *gin.Context) {
	var req transport.SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	header, err := c.FormFile(formFile)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingFile, err.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	defer file.Close()

	job, err := h.svc.Submit(c.Request.Context(), service.SubmitInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		BatchSize:   req.TamanhoLote,
	})
	if httpkit.HandleError(c, err) {
		_ = c.Error(err)
		return
	}

	httpkit.JSON(c, http.StatusAccepted, job)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	job, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, job)
}

func (h *Handler) Result(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	body, err := h.svc.OpenResult(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", `attachment; filename="catalogo_completo.json"`)
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		_ = c.Error(err)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
