package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ragkb/ragkb/internal/pkg/response"
	"github.com/ragkb/ragkb/internal/repo"
)

type JobHandler struct {
	jobs *repo.IndexJobRepo
}

func NewJobHandler(jobs *repo.IndexJobRepo) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Get resolves a job by numeric id or by its opaque task id.
func (h *JobHandler) Get(c *gin.Context) {
	param := c.Param("id")
	if id, err := strconv.ParseInt(param, 10, 64); err == nil {
		job, err := h.jobs.GetByID(c.Request.Context(), id)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, job)
		return
	}
	job, err := h.jobs.GetByTaskID(c.Request.Context(), param)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, job)
}
