package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ragkb/ragkb/internal/pkg/errcode"
	"github.com/ragkb/ragkb/internal/pkg/response"
	"github.com/ragkb/ragkb/internal/service"
)

type AskHandler struct {
	ask *service.AskService
}

func NewAskHandler(ask *service.AskService) *AskHandler {
	return &AskHandler{ask: ask}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k"`
	// pointer keeps "not sent" (search everything) distinct from an
	// explicit empty list (match nothing)
	DocIDs  *[]int64 `json:"doc_ids"`
	Explain bool     `json:"explain"`
}

func (h *AskHandler) Ask(c *gin.Context) {
	req := askRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "question is required")
		return
	}
	if req.TopK < 0 {
		response.Error(c, errcode.ErrInvalid, "top_k must be positive")
		return
	}
	var docIDs []int64
	if req.DocIDs != nil {
		docIDs = *req.DocIDs
		if docIDs == nil {
			docIDs = []int64{}
		}
	}
	answer, err := h.ask.Ask(c.Request.Context(), req.Question, req.TopK, docIDs, req.Explain)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}
