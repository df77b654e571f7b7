package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"flow-ai/chatsync/internal/blobstore"
	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/model"
)

// FileURLPrefix is where stored objects are served from.
const FileURLPrefix = "/api/v1/files/"

type UploadService struct {
	blobs  *blobstore.Store
	logger *slog.Logger
}

func NewUploadService(blobs *blobstore.Store, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{blobs: blobs, logger: logger}
}

// Upload stores a whole file in one request.
func (s *UploadService) Upload(_ context.Context, filename, contentType string, r io.Reader) (*model.Attachment, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}
	info, err := s.blobs.Put(blobstore.NewKey(filename), contentType, r)
	if err != nil {
		return nil, fmt.Errorf("could not store %s: %w", filename, err)
	}
	s.logger.Info("File stored", "key", info.Key, "size", info.Size)
	return attachmentFor(info), nil
}

func (s *UploadService) InitiateMultipart(_ context.Context, filename, contentType string) (*model.MultipartUpload, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}
	key := blobstore.NewKey(filename)
	uploadID, err := s.blobs.InitiateMultipart(key, contentType)
	if err != nil {
		return nil, fmt.Errorf("could not start multipart upload: %w", err)
	}
	s.logger.Debug("Multipart upload started", "upload_id", uploadID, "key", key)
	return &model.MultipartUpload{UploadID: uploadID, Key: key}, nil
}

func (s *UploadService) UploadPart(_ context.Context, uploadID, key string, partNumber int, r io.Reader) (*model.PartDescriptor, error) {
	etag, err := s.blobs.PutPart(uploadID, key, partNumber, r)
	if err != nil {
		return nil, blobError(err)
	}
	return &model.PartDescriptor{PartNumber: partNumber, ETag: etag}, nil
}

// CompleteMultipart assembles the parts, which must be listed in order.
func (s *UploadService) CompleteMultipart(_ context.Context, uploadID, key string, parts []model.PartDescriptor) (*model.Attachment, error) {
	info, err := s.blobs.CompleteMultipart(uploadID, key, parts)
	if err != nil {
		return nil, blobError(err)
	}
	s.logger.Info("Multipart upload completed", "upload_id", uploadID, "key", key, "parts", len(parts), "size", info.Size)
	return attachmentFor(info), nil
}

func (s *UploadService) AbortMultipart(_ context.Context, uploadID string) error {
	return blobError(s.blobs.AbortMultipart(uploadID))
}

// Open returns a stored object by key.
func (s *UploadService) Open(_ context.Context, key string) ([]byte, *blobstore.ObjectInfo, error) {
	data, info, err := s.blobs.Get(key)
	if err != nil {
		return nil, nil, blobError(err)
	}
	return data, info, nil
}

func attachmentFor(info *blobstore.ObjectInfo) *model.Attachment {
	return &model.Attachment{
		Name: path.Base(info.Key),
		Type: info.ContentType,
		Size: info.Size,
		URL:  FileURLPrefix + info.Key,
	}
}

func validateFilename(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == "/" {
		return fmt.Errorf("%w: file name is required", app_errors.ErrValidation)
	}
	return nil
}

func blobError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: %w", app_errors.ErrNotFound, err)
	case errors.Is(err, blobstore.ErrInvalidParts):
		return fmt.Errorf("%w: %w", app_errors.ErrValidation, err)
	}
	return err
}
