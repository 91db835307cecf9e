package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shoplens/internal/repository"
	"shoplens/internal/transport/http/response"
)

// HistoryHandler serves recent pipeline runs and answer logs.
type HistoryHandler struct {
	runRepo    *repository.ScrapeRunRepository
	answerRepo *repository.AnswerLogRepository
}

func NewHistoryHandler(runRepo *repository.ScrapeRunRepository, answerRepo *repository.AnswerLogRepository) *HistoryHandler {
	return &HistoryHandler{runRepo: runRepo, answerRepo: answerRepo}
}

func (h *HistoryHandler) ListRuns(c *gin.Context) {
	runs, err := h.runRepo.ListRecent(limitParam(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
		return
	}
	response.OK(c, runs)
}

func (h *HistoryHandler) ListAnswers(c *gin.Context) {
	entries, err := h.answerRepo.ListRecent(limitParam(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
		return
	}
	response.OK(c, entries)
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		return 20
	}
	return limit
}
