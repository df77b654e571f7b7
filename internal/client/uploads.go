package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
)

type urlResponse struct {
	URL string `json:"url"`
}

// formUpload streams fields and a single file part as multipart/form-data
// without buffering the file in memory.
func (c *Client) formUpload(ctx context.Context, path string, fields map[string]string, name, contentType string, body io.Reader, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		for k, v := range fields {
			if err := mw.WriteField(k, v); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, body); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("could not create http request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	// Unblocks the writer goroutine if the server stopped reading early.
	pr.Close()
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeInto(resp, out)
}

func (c *Client) UploadFile(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	var out urlResponse
	if err := c.formUpload(ctx, "/uploads", nil, name, contentType, body, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) InitiateMultipartUpload(ctx context.Context, filename, contentType string) (*model.MultipartUpload, error) {
	in := map[string]string{"filename": filename, "content_type": contentType}
	var out model.MultipartUpload
	if err := c.doJSON(ctx, http.MethodPost, "/uploads/multipart", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UploadPart(ctx context.Context, key, uploadID string, partNumber int, body io.Reader) (*model.PartDescriptor, error) {
	path := "/uploads/multipart/" + url.PathEscape(uploadID) + "/parts/" + strconv.Itoa(partNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint(path, url.Values{"key": {key}}), body)
	if err != nil {
		return nil, fmt.Errorf("could not create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if s, ok := body.(interface{ Size() int64 }); ok {
		req.ContentLength = s.Size()
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out model.PartDescriptor
	if err := decodeInto(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []model.PartDescriptor) (string, error) {
	in := struct {
		Key   string                 `json:"key"`
		Parts []model.PartDescriptor `json:"parts"`
	}{Key: key, Parts: parts}
	var out urlResponse
	path := "/uploads/multipart/" + url.PathEscape(uploadID) + "/complete"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, in, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) EnqueueIndexing(ctx context.Context, conversationID string, file model.FileMeta, body io.Reader) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	fields := map[string]string{"conversation_id": conversationID}
	if err := c.formUpload(ctx, "/indexing/jobs", fields, file.Name, file.Type, body, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("%w: indexing job enqueued without an id", app_errors.ErrTransport)
	}
	return out.JobID, nil
}

func (c *Client) GetIndexingJob(ctx context.Context, jobID string) (*model.IndexingStatus, error) {
	var out model.IndexingStatus
	if err := c.doJSON(ctx, http.MethodGet, "/indexing/jobs/"+url.PathEscape(jobID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
