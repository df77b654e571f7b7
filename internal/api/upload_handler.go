package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"flow-ai/chatsync/internal/model"
	"flow-ai/chatsync/internal/service"
)

const maxFieldSize = 4 << 10

// UploadHandler serves file uploads, stored files and document indexing.
type UploadHandler struct {
	uploads  *service.UploadService
	indexing *service.IndexingService
}

func NewUploadHandler(uploads *service.UploadService, indexing *service.IndexingService) *UploadHandler {
	return &UploadHandler{uploads: uploads, indexing: indexing}
}

// formFile is the single file part of a multipart/form-data request.
type formFile struct {
	name        string
	contentType string
}

// streamForm walks a multipart/form-data body. Fields are collected until the
// "file" part, which is handed to onFile without buffering it.
func streamForm(r *http.Request, onFile func(fields map[string]string, file formFile, body io.Reader) error) error {
	mr, err := r.MultipartReader()
	if err != nil {
		return validationError("expected a multipart/form-data body")
	}
	fields := make(map[string]string)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return validationError("missing file part")
		}
		if err != nil {
			return validationError("malformed multipart body: " + err.Error())
		}
		if part.FormName() != "file" {
			value, err := io.ReadAll(io.LimitReader(part, maxFieldSize))
			part.Close()
			if err != nil {
				return validationError("could not read form field " + part.FormName())
			}
			fields[part.FormName()] = string(value)
			continue
		}

		file := formFile{name: part.FileName(), contentType: part.Header.Get("Content-Type")}
		err = onFile(fields, file, part)
		part.Close()
		return err
	}
}

// UploadFile godoc
// @Summary      Upload a file
// @Tags         Uploads
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "File"
// @Success      201   {object}  URLResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /v1/uploads [post]
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	var att *model.Attachment
	err := streamForm(r, func(_ map[string]string, file formFile, body io.Reader) error {
		var err error
		att, err = h.uploads.Upload(r.Context(), file.name, file.contentType, body)
		return err
	})
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, URLResponse{URL: att.URL, Name: att.Name, Size: att.Size})
}

// InitiateMultipart godoc
// @Summary      Start a multipart upload
// @Tags         Uploads
// @Accept       json
// @Produce      json
// @Param        request  body      InitiateMultipartRequest  true  "File"
// @Success      201      {object}  model.MultipartUpload
// @Failure      400      {object}  ErrorResponse
// @Router       /v1/uploads/multipart [post]
func (h *UploadHandler) InitiateMultipart(w http.ResponseWriter, r *http.Request) {
	var req InitiateMultipartRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	mpu, err := h.uploads.InitiateMultipart(r.Context(), req.Filename, req.ContentType)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, mpu)
}

// UploadPart godoc
// @Summary      Upload one part
// @Tags         Uploads
// @Accept       octet-stream
// @Produce      json
// @Param        uploadID    path      string  true  "Upload ID"
// @Param        partNumber  path      int     true  "Part number, from 1"
// @Param        key         query     string  true  "Object key"
// @Success      200         {object}  model.PartDescriptor
// @Failure      400         {object}  ErrorResponse
// @Failure      404         {object}  ErrorResponse
// @Router       /v1/uploads/multipart/{uploadID}/parts/{partNumber} [put]
func (h *UploadHandler) UploadPart(w http.ResponseWriter, r *http.Request) {
	partNumber, err := strconv.Atoi(chi.URLParam(r, "partNumber"))
	if err != nil || partNumber < 1 {
		respondWithError(w, validationError("part number must be a positive integer"))
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		respondWithError(w, validationError("key is required"))
		return
	}
	part, err := h.uploads.UploadPart(r.Context(), chi.URLParam(r, "uploadID"), key, partNumber, r.Body)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, part)
}

// CompleteMultipart godoc
// @Summary      Complete a multipart upload
// @Tags         Uploads
// @Accept       json
// @Produce      json
// @Param        uploadID  path      string                    true  "Upload ID"
// @Param        request   body      CompleteMultipartRequest  true  "Parts in order"
// @Success      200       {object}  URLResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /v1/uploads/multipart/{uploadID}/complete [post]
func (h *UploadHandler) CompleteMultipart(w http.ResponseWriter, r *http.Request) {
	var req CompleteMultipartRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	parts := make([]model.PartDescriptor, len(req.Parts))
	for i, p := range req.Parts {
		parts[i] = model.PartDescriptor{PartNumber: p.PartNumber, ETag: p.ETag}
	}
	att, err := h.uploads.CompleteMultipart(r.Context(), chi.URLParam(r, "uploadID"), req.Key, parts)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, URLResponse{URL: att.URL, Name: att.Name, Size: att.Size})
}

// AbortMultipart godoc
// @Summary      Abort a multipart upload
// @Tags         Uploads
// @Produce      json
// @Param        uploadID  path      string  true  "Upload ID"
// @Success      200       {object}  StatusResponse
// @Router       /v1/uploads/multipart/{uploadID} [delete]
func (h *UploadHandler) AbortMultipart(w http.ResponseWriter, r *http.Request) {
	if err := h.uploads.AbortMultipart(r.Context(), chi.URLParam(r, "uploadID")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// ServeFile godoc
// @Summary      Download a stored file
// @Tags         Uploads
// @Produce      octet-stream
// @Param        key  path  string  true  "Object key"
// @Success      200
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/files/{key} [get]
func (h *UploadHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	data, info, err := h.uploads.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	http.ServeContent(w, r, info.Key, info.CreatedAt.Truncate(time.Second), bytes.NewReader(data))
}

// EnqueueIndexing godoc
// @Summary      Index a document
// @Description  Stores the document and extracts its text in the background.
// @Tags         Indexing
// @Accept       multipart/form-data
// @Produce      json
// @Param        conversation_id  formData  string  true  "Conversation ID"
// @Param        file             formData  file    true  "Document"
// @Success      202              {object}  EnqueueIndexingResponse
// @Failure      400              {object}  ErrorResponse
// @Router       /v1/indexing/jobs [post]
func (h *UploadHandler) EnqueueIndexing(w http.ResponseWriter, r *http.Request) {
	var job *model.IndexingJob
	err := streamForm(r, func(fields map[string]string, file formFile, body io.Reader) error {
		var err error
		job, err = h.indexing.Enqueue(r.Context(), fields["conversation_id"], model.FileMeta{Name: file.name, Type: file.contentType}, body)
		return err
	})
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, EnqueueIndexingResponse{JobID: job.ID, Status: job.Status})
}

// GetIndexingJob godoc
// @Summary      Indexing job status
// @Tags         Indexing
// @Produce      json
// @Param        jobID  path      string  true  "Job ID"
// @Success      200    {object}  model.IndexingStatus
// @Failure      404    {object}  ErrorResponse
// @Router       /v1/indexing/jobs/{jobID} [get]
func (h *UploadHandler) GetIndexingJob(w http.ResponseWriter, r *http.Request) {
	status, err := h.indexing.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}
