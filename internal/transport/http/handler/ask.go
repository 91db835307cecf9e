package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appsvc "shoplens/internal/app"
	"shoplens/internal/transport/http/response"
	"shoplens/internal/vecindex"
)

type AskHandler struct {
	service *appsvc.AnswerService
}

func NewAskHandler(service *appsvc.AnswerService) *AskHandler {
	return &AskHandler{service: service}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "question is required")
		return
	}

	resp, err := h.service.Answer(c.Request.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, appsvc.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "question must not be empty")
		case errors.Is(err, vecindex.ErrNotLoaded):
			response.Error(c, http.StatusNotFound, response.CodeIndexNotReady, "vector index not built yet; rebuild it first")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
		}
		return
	}

	response.OK(c, resp)
}
