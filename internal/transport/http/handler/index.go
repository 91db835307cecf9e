package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appsvc "shoplens/internal/app"
	"shoplens/internal/feature"
	"shoplens/internal/transport/http/response"
)

type IndexHandler struct {
	service *appsvc.IndexService
}

func NewIndexHandler(service *appsvc.IndexService) *IndexHandler {
	return &IndexHandler{service: service}
}

func (h *IndexHandler) Rebuild(c *gin.Context) {
	result, err := h.service.Rebuild(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, feature.ErrMatrixNotFound):
			response.Error(c, http.StatusNotFound, response.CodeMatrixNotFound, "feature matrix not found; run a scrape first")
		case errors.Is(err, appsvc.ErrEmptyMatrix):
			response.Error(c, http.StatusBadRequest, response.CodeMatrixEmpty, "feature matrix has no rows")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
		}
		return
	}

	response.OK(c, result)
}
