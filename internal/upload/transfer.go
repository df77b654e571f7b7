package upload

import (
	"context"
	"fmt"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
)

// PartCount returns the number of multipart parts a file of the given size
// is split into.
func PartCount(size, chunkSize int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// transfer stores one file and returns its URL. Files up to ChunkSize go in a
// single call; larger files use the three-phase multipart sequence.
func (c *Coordinator) transfer(ctx context.Context, f File, tr *jobTracker) (string, error) {
	meta := f.Meta()
	if f.Size <= c.cfg.ChunkSize {
		url, err := c.uploads.UploadFile(ctx, meta.Name, meta.Type, f.section(0, f.Size))
		if err != nil {
			return "", fmt.Errorf("upload %s: %w", f.Name, err)
		}
		tr.progress(100)
		return url, nil
	}
	return c.multipart(ctx, f, tr)
}

// multipart uploads parts strictly in order; completion needs the
// contiguous, ordered list of descriptors.
func (c *Coordinator) multipart(ctx context.Context, f File, tr *jobTracker) (string, error) {
	meta := f.Meta()
	mpu, err := c.uploads.InitiateMultipartUpload(ctx, meta.Name, meta.Type)
	if err != nil {
		return "", fmt.Errorf("initiate multipart upload of %s: %w", f.Name, err)
	}

	total := PartCount(f.Size, c.cfg.ChunkSize)
	parts := make([]model.PartDescriptor, 0, total)
	for n := 1; n <= total; n++ {
		off := int64(n-1) * c.cfg.ChunkSize
		length := min(c.cfg.ChunkSize, f.Size-off)

		desc, err := c.uploads.UploadPart(ctx, mpu.Key, mpu.UploadID, n, f.section(off, length))
		if err != nil {
			return "", fmt.Errorf("upload part %d/%d of %s: %w", n, total, f.Name, err)
		}
		if desc == nil {
			return "", fmt.Errorf("%w: no descriptor for part %d of %s", app_errors.ErrTransport, n, f.Name)
		}
		parts = append(parts, *desc)
		tr.progress(n * 100 / total)
	}

	url, err := c.uploads.CompleteMultipartUpload(ctx, mpu.Key, mpu.UploadID, parts)
	if err != nil {
		return "", fmt.Errorf("complete multipart upload of %s: %w", f.Name, err)
	}
	c.logger.Debug("Multipart upload completed", "file", f.Name, "parts", total)
	return url, nil
}
