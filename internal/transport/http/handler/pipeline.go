package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appsvc "shoplens/internal/app"
	"shoplens/internal/scrape"
	"shoplens/internal/transport/http/response"
)

type PipelineHandler struct {
	service *appsvc.PipelineService
}

func NewPipelineHandler(service *appsvc.PipelineService) *PipelineHandler {
	return &PipelineHandler{service: service}
}

type scrapeRequest struct {
	Keyword string `json:"q" binding:"required"`
	Count   int    `json:"n"`
}

func (h *PipelineHandler) Scrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "q is required")
		return
	}

	result, err := h.service.Run(c.Request.Context(), appsvc.RunInput{
		Keyword: req.Keyword,
		Count:   req.Count,
	})
	if err != nil {
		switch {
		case errors.Is(err, appsvc.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "keyword must not be empty")
		case errors.Is(err, appsvc.ErrNoProducts):
			response.Error(c, http.StatusNotFound, response.CodeNoProducts, "no products found for keyword")
		case errors.Is(err, scrape.ErrSnapshotMissing):
			response.Error(c, http.StatusNotFound, response.CodeNoProducts, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
		}
		return
	}

	response.OK(c, result)
}
