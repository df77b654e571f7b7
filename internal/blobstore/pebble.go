package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	pebble "github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"flow-ai/chatsync/internal/model"
)

var (
	// ErrNotFound is returned for unknown objects and upload sessions.
	ErrNotFound = errors.New("blobstore: not found")
	// ErrInvalidParts is returned when a completion request does not list
	// the uploaded parts contiguously from 1 with matching etags.
	ErrInvalidParts = errors.New("blobstore: invalid part list")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

type uploadMeta struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store keeps uploaded files in a Pebble database.
//
// Layout:
//
//	object/{key}                  object bytes
//	objmeta/{key}                 ObjectInfo as JSON
//	mpu/{uploadID}/meta           uploadMeta as JSON
//	mpu/{uploadID}/part/{n:05d}   part bytes
type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func objectKey(key string) []byte     { return []byte("object/" + key) }
func objectMetaKey(key string) []byte { return []byte("objmeta/" + key) }
func uploadPrefix(id string) []byte   { return []byte("mpu/" + id + "/") }
func uploadMetaKey(id string) []byte  { return []byte("mpu/" + id + "/meta") }
func partKey(id string, n int) []byte { return []byte(fmt.Sprintf("mpu/%s/part/%05d", id, n)) }

// NewKey returns a fresh object key that keeps the original file name.
func NewKey(filename string) string {
	return uuid.NewString() + "/" + filepath.Base(filename)
}

// Put stores r under key in one write.
func (s *Store) Put(key, contentType string, r io.Reader) (*ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read object body: %w", err)
	}
	info := &ObjectInfo{Key: key, ContentType: contentType, Size: int64(len(data)), CreatedAt: time.Now().UTC()}
	meta, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(objectKey(key), data, nil); err != nil {
		return nil, err
	}
	if err := b.Set(objectMetaKey(key), meta, nil); err != nil {
		return nil, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("could not commit object %s: %w", key, err)
	}
	return info, nil
}

// Get returns a copy of the object's bytes and its info.
func (s *Store) Get(key string) ([]byte, *ObjectInfo, error) {
	info, err := s.Stat(key)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.get(objectKey(key))
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}

func (s *Store) Stat(key string) (*ObjectInfo, error) {
	raw, err := s.get(objectMetaKey(key))
	if err != nil {
		return nil, err
	}
	var info ObjectInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("corrupt metadata for %s: %w", key, err)
	}
	return &info, nil
}

// InitiateMultipart opens an upload session for key.
func (s *Store) InitiateMultipart(key, contentType string) (string, error) {
	id := uuid.NewString()
	meta, err := json.Marshal(uploadMeta{Key: key, ContentType: contentType, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	if err := s.db.Set(uploadMetaKey(id), meta, pebble.Sync); err != nil {
		return "", fmt.Errorf("could not create upload %s: %w", id, err)
	}
	return id, nil
}

// PutPart stores one part of an upload and returns its etag. Re-sending a
// part number replaces the earlier bytes.
func (s *Store) PutPart(uploadID, key string, partNumber int, r io.Reader) (string, error) {
	if partNumber < 1 {
		return "", fmt.Errorf("%w: part numbers start at 1, got %d", ErrInvalidParts, partNumber)
	}
	if _, err := s.upload(uploadID, key); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("could not read part body: %w", err)
	}
	if err := s.db.Set(partKey(uploadID, partNumber), data, pebble.Sync); err != nil {
		return "", fmt.Errorf("could not store part %d: %w", partNumber, err)
	}
	return etag(data), nil
}

// CompleteMultipart concatenates the listed parts, in order, into the final
// object and discards the upload session.
func (s *Store) CompleteMultipart(uploadID, key string, parts []model.PartDescriptor) (*ObjectInfo, error) {
	meta, err := s.upload(uploadID, key)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no parts given", ErrInvalidParts)
	}

	var buf bytes.Buffer
	for i, p := range parts {
		if p.PartNumber != i+1 {
			return nil, fmt.Errorf("%w: expected part %d at position %d, got %d", ErrInvalidParts, i+1, i, p.PartNumber)
		}
		data, err := s.get(partKey(uploadID, p.PartNumber))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: part %d was never uploaded", ErrInvalidParts, p.PartNumber)
			}
			return nil, err
		}
		if etag(data) != p.ETag {
			return nil, fmt.Errorf("%w: etag mismatch for part %d", ErrInvalidParts, p.PartNumber)
		}
		buf.Write(data)
	}

	info := &ObjectInfo{Key: key, ContentType: meta.ContentType, Size: int64(buf.Len()), CreatedAt: time.Now().UTC()}
	rawInfo, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(objectKey(key), buf.Bytes(), nil); err != nil {
		return nil, err
	}
	if err := b.Set(objectMetaKey(key), rawInfo, nil); err != nil {
		return nil, err
	}
	if err := b.DeleteRange(uploadPrefix(uploadID), prefixEnd(uploadPrefix(uploadID)), nil); err != nil {
		return nil, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("could not commit upload %s: %w", uploadID, err)
	}
	return info, nil
}

// AbortMultipart discards an upload session and its parts.
func (s *Store) AbortMultipart(uploadID string) error {
	return s.db.DeleteRange(uploadPrefix(uploadID), prefixEnd(uploadPrefix(uploadID)), pebble.Sync)
}

func (s *Store) upload(uploadID, key string) (*uploadMeta, error) {
	raw, err := s.get(uploadMetaKey(uploadID))
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", uploadID, err)
	}
	var meta uploadMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("corrupt upload %s: %w", uploadID, err)
	}
	if meta.Key != key {
		return nil, fmt.Errorf("upload %s: %w", uploadID, ErrNotFound)
	}
	return &meta, nil
}

func (s *Store) get(k []byte) ([]byte, error) {
	v, closer, err := s.db.Get(k)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return bytes.Clone(v), nil
}

func etag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
