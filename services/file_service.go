package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"file-manager/models"
)

const (
	// MaxUploadSize is the inclusive upper bound on upload payloads.
	MaxUploadSize = 5 * 1024 * 1024

	// DownloadLinkTTL is how long a presigned download reference stays valid.
	DownloadLinkTTL = 15 * time.Minute
)

// Allow-lists for uploads. A payload passes when its extension is allowed
// and its sniffed type is allowed; a generic octet-stream sniff with an
// allowed extension is accepted as a fallback, since several allowed formats
// sniff as plain binary.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain":      true,
	"application/zip": true,
}

var allowedExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"txt":  "text/plain",
	"zip":  "application/zip",
}

// FileService orchestrates uploads, deletes, listing and download links
// across the object store and the metadata store. The two stores offer no
// cross-store transaction, so every mutation follows a fixed order with a
// compensating action on the specific failure branch.
type FileService struct {
	store  ObjectStore
	meta   MetadataStore
	labels LabelAnnotator // optional, best-effort
	logs   *LogStreamService
}

func NewFileService(store ObjectStore, meta MetadataStore, labels LabelAnnotator, logs *LogStreamService) *FileService {
	return &FileService{
		store:  store,
		meta:   meta,
		labels: labels,
		logs:   logs,
	}
}

// Upload validates the payload, stores the bytes, then inserts the metadata
// row. If the insert fails the just-written object is deleted again; a
// failure of that compensating delete leaves a permanent orphan and is
// logged as critical.
func (s *FileService) Upload(ctx context.Context, r io.Reader, declaredName string, declaredSize int64) (*models.File, error) {
	if declaredSize > MaxUploadSize {
		return nil, &ValidationError{
			Reason:  ReasonTooLarge,
			Message: "File is too large. Maximum size is 5MB.",
		}
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload stream: %w", err)
	}
	if len(content) == 0 {
		return nil, &ValidationError{
			Reason:  ReasonEmptyStream,
			Message: "Uploaded file is empty.",
		}
	}
	if int64(len(content)) > MaxUploadSize {
		return nil, &ValidationError{
			Reason:  ReasonTooLarge,
			Message: "File is too large. Maximum size is 5MB.",
		}
	}

	contentType, err := classifyContent(content, declaredName)
	if err != nil {
		return nil, err
	}

	objectKey := buildObjectKey(declaredName)

	s.logs.Log(StreamApplication, "Attempting to upload %s with key %s", declaredName, objectKey)

	if err := s.store.PutObject(ctx, objectKey, bytes.NewReader(content), int64(len(content)), contentType); err != nil {
		// Nothing persisted yet, no compensation needed.
		return nil, &ObjectStoreError{Op: "put", Key: objectKey, Err: err}
	}

	file := &models.File{
		OriginalFilename: filepath.Base(declaredName),
		ObjectKey:        objectKey,
		SizeBytes:        int64(len(content)),
		ContentType:      contentType,
	}

	if err := s.meta.Create(ctx, file); err != nil {
		// The object is now orphaned; delete it to restore consistency.
		s.logs.Log(StreamApplication, "Metadata insert failed for %s after object put: %v", objectKey, err)
		if delErr := s.store.DeleteObject(ctx, objectKey); delErr != nil && !errors.Is(delErr, ErrObjectNotFound) {
			s.logs.Critical("Failed to delete orphaned object %s after metadata insert failure: %v", objectKey, delErr)
		} else {
			s.logs.Log(StreamApplication, "Orphaned object %s deleted after metadata insert failure", objectKey)
		}
		return nil, &MetadataStoreError{Op: "insert", Err: err}
	}

	s.logs.Log(StreamApplication, "Uploaded %s (id %d, %d bytes, %s)", objectKey, file.ID, file.SizeBytes, contentType)

	if s.labels != nil {
		s.labels.Submit(objectKey, contentType)
	}

	return file, nil
}

// Delete removes the object first and the metadata row second, so a failed
// object delete leaves both sides intact and the operation can simply be
// retried. An object that is already absent counts as deleted.
func (s *FileService) Delete(ctx context.Context, id uint) error {
	file, err := s.meta.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &MetadataStoreError{Op: "select", Err: err}
	}

	s.logs.Log(StreamApplication, "Attempting to delete object %s for file id %d (%s)", file.ObjectKey, id, file.OriginalFilename)

	if err := s.store.DeleteObject(ctx, file.ObjectKey); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			s.logs.Log(StreamApplication, "Object %s already absent, proceeding to remove record for id %d", file.ObjectKey, id)
		} else {
			// Record stays; object and record are still consistent and the
			// delete can be retried.
			return &ObjectStoreError{Op: "delete", Key: file.ObjectKey, Err: err}
		}
	}

	rows, err := s.meta.DeleteByID(ctx, id)
	if err != nil {
		// Inverse orphan of upload: object gone, record remains. The object
		// is unrecoverable, so surface loudly instead of attempting repair.
		s.logs.Critical("Object %s deleted but metadata record id %d remains: %v", file.ObjectKey, id, err)
		return &MetadataStoreError{Op: "delete", Err: err}
	}
	if rows == 0 {
		// The record vanished between lookup and delete. The object is gone
		// either way; this is a benign race.
		s.logs.Log(StreamApplication, "Record id %d not found during delete, object %s already removed", id, file.ObjectKey)
		return ErrNotFound
	}

	s.logs.Log(StreamApplication, "Deleted file id %d (%s), object %s", id, file.OriginalFilename, file.ObjectKey)
	return nil
}

// List returns all file records, most recent first.
func (s *FileService) List(ctx context.Context) ([]models.File, error) {
	files, err := s.meta.List(ctx)
	if err != nil {
		return nil, &MetadataStoreError{Op: "select", Err: err}
	}
	return files, nil
}

// GetDownloadLink produces a time-limited signed reference the client uses
// directly against the object store. No state is mutated.
func (s *FileService) GetDownloadLink(ctx context.Context, id uint) (*models.DownloadLink, error) {
	file, err := s.meta.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &MetadataStoreError{Op: "select", Err: err}
	}

	expiresAt := time.Now().Add(DownloadLinkTTL)
	url, err := s.store.PresignDownload(ctx, file.ObjectKey, file.OriginalFilename, DownloadLinkTTL)
	if err != nil {
		return nil, &ObjectStoreError{Op: "presign", Key: file.ObjectKey, Err: err}
	}

	s.logs.Log(StreamApplication, "Generated download link for object %s (id %d)", file.ObjectKey, id)

	return &models.DownloadLink{
		URL:       url,
		Filename:  file.OriginalFilename,
		ExpiresAt: expiresAt,
	}, nil
}

// classifyContent sniffs the payload and checks it, together with the
// declared filename's extension, against the allow-lists. Returns the
// classification stored on the record.
func classifyContent(content []byte, declaredName string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(declaredName)), ".")
	extType, extOK := allowedExtensions[ext]

	sniffed := mimetype.Detect(content)

	reject := &ValidationError{
		Reason:  ReasonBadType,
		Message: "Invalid file type. Allowed types: JPG, PNG, PDF, DOC, DOCX, TXT, ZIP.",
	}

	if !extOK {
		return "", reject
	}

	for mt := range allowedMimeTypes {
		if sniffed.Is(mt) {
			return mt, nil
		}
	}

	// Some allowed formats sniff as generic binary; fall back to the type
	// implied by the recognized extension.
	if sniffed.Is("application/octet-stream") {
		return extType, nil
	}

	return "", reject
}

var filenameInvalidChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// buildObjectKey combines a fresh uniqueness token with a sanitized fragment
// of the declared name. Keys are never derived from user input alone.
func buildObjectKey(declaredName string) string {
	sanitized := filenameInvalidChars.ReplaceAllString(filepath.Base(declaredName), "_")
	return "uploads/" + uuid.New().String() + "-" + sanitized
}
