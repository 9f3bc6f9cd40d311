package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ragkb/ragkb/internal/job"
	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/pkg/errcode"
	"github.com/ragkb/ragkb/internal/pkg/response"
	"github.com/ragkb/ragkb/internal/service"
)

type DocumentHandler struct {
	docs           *service.DocumentService
	worker         *job.IndexWorker
	reindexEnabled bool
}

func NewDocumentHandler(docs *service.DocumentService, worker *job.IndexWorker, reindexEnabled bool) *DocumentHandler {
	return &DocumentHandler{docs: docs, worker: worker, reindexEnabled: reindexEnabled}
}

type createDocumentRequest struct {
	Title string `json:"title"`
	Text  string `json:"text" binding:"required"`
}

func (h *DocumentHandler) Create(c *gin.Context) {
	req := createDocumentRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "text is required")
		return
	}
	doc, err := h.docs.CreateText(c.Request.Context(), req.Title, req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "cannot read upload")
		return
	}
	defer file.Close()

	doc, err := h.docs.Upload(c.Request.Context(), c.PostForm("title"), fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	response.Success(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	chunks, err := h.docs.Chunks(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if chunks == nil {
		chunks = []model.Chunk{}
	}
	response.Success(c, gin.H{"chunks": chunks})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": id})
}

// Index queues a document for (re-)indexing and returns the job to poll.
func (h *DocumentHandler) Index(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if doc.Status == model.DocumentStatusIndexed && !h.reindexEnabled {
		response.Error(c, errcode.ErrReindexDisabled, "re-indexing is disabled")
		return
	}
	if !doc.Indexable() {
		response.Error(c, errcode.ErrNoSourceText, "no source text available for indexing")
		return
	}
	indexJob, err := h.worker.Enqueue(c.Request.Context(), doc)
	if err != nil {
		if errors.Is(err, job.ErrQueueFull) {
			response.Error(c, errcode.ErrQueueFull, "indexing queue is full")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, indexJob)
}
