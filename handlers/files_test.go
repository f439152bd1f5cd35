package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "file-manager/config"
	"file-manager/models"
	"file-manager/services"
)

var pngPayload = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 32)...)

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjectStore) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	content, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = content
	return nil
}

func (m *memObjectStore) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return services.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memObjectStore) PresignDownload(ctx context.Context, key, filename string, expires time.Duration) (string, error) {
	return "https://example-bucket.s3.amazonaws.com/" + key + "?signature=test", nil
}

func (m *memObjectStore) PutObjectTags(ctx context.Context, key string, tags []services.ObjectTag) error {
	return nil
}

type memMetadataStore struct {
	mu      sync.Mutex
	nextID  uint
	records map[uint]models.File
}

func (m *memMetadataStore) Create(ctx context.Context, file *models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	file.ID = m.nextID
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	m.records[file.ID] = *file
	return nil
}

func (m *memMetadataStore) GetByID(ctx context.Context, id uint) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &record, nil
}

func (m *memMetadataStore) DeleteByID(ctx context.Context, id uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return 0, nil
	}
	delete(m.records, id)
	return 1, nil
}

func (m *memMetadataStore) List(ctx context.Context) ([]models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	files := make([]models.File, 0, len(m.records))
	for _, record := range m.records {
		files = append(files, record)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

func newTestRouter() (*gin.Engine, *memObjectStore, *memMetadataStore) {
	gin.SetMode(gin.TestMode)

	store := &memObjectStore{objects: make(map[string][]byte)}
	meta := &memMetadataStore{records: make(map[uint]models.File)}

	logService := services.NewLogStreamService(&appconfig.Config{LogEnabled: false})
	fileService := services.NewFileService(store, meta, nil, logService)
	h := NewFileHandler(fileService)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"success": false,
			"message": "Method not allowed for this endpoint.",
		})
	})

	api := r.Group("/api")
	api.GET("/files", h.ListFiles)
	api.POST("/upload", h.UploadFile)
	api.POST("/delete", h.DeleteFile)
	r.GET("/download", h.DownloadFile)

	return r, store, meta
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doUpload(t *testing.T, r *gin.Engine, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListFilesEmpty(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Files   []models.File `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Files)
}

func TestUploadHandlerCreatesFile(t *testing.T) {
	r, store, _ := newTestRouter()

	w := doUpload(t, r, "uploadedFile", "photo.png", pngPayload)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotZero(t, resp.FileID)
	assert.Equal(t, "photo.png", resp.Filename)
	assert.True(t, strings.HasPrefix(resp.ObjectKey, "uploads/"))

	_, ok := store.objects[resp.ObjectKey]
	assert.True(t, ok)
}

func TestUploadHandlerWrongFieldName(t *testing.T) {
	r, store, _ := newTestRouter()

	w := doUpload(t, r, "file", "photo.png", pngPayload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.objects)
}

func TestUploadHandlerRejectsDisallowedType(t *testing.T) {
	r, store, _ := newTestRouter()

	w := doUpload(t, r, "uploadedFile", "setup.exe", []byte("MZ executable"))

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Empty(t, store.objects)
}

func TestUploadHandlerRejectsOversizedFile(t *testing.T) {
	r, store, _ := newTestRouter()

	oversized := bytes.Repeat([]byte("a"), services.MaxUploadSize+1)
	w := doUpload(t, r, "uploadedFile", "big.txt", oversized)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, store.objects)
}

func TestDeleteHandler(t *testing.T) {
	r, store, meta := newTestRouter()

	w := doUpload(t, r, "uploadedFile", "photo.png", pngPayload)
	require.Equal(t, http.StatusCreated, w.Code)

	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	req := httptest.NewRequest(http.MethodPost, "/api/delete", strings.NewReader(`{"file_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, store.objects)
	assert.Empty(t, meta.records)
}

func TestDeleteHandlerMissingBody(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/delete", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteHandlerUnknownID(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/delete", strings.NewReader(`{"file_id":999}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadHandlerRedirects(t *testing.T) {
	r, _, _ := newTestRouter()

	w := doUpload(t, r, "uploadedFile", "photo.png", pngPayload)
	require.Equal(t, http.StatusCreated, w.Code)

	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	req := httptest.NewRequest(http.MethodGet, "/download?id=1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), uploaded.ObjectKey)
}

func TestDownloadHandlerUnknownID(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/download?id=12345", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Download Error")
}

func TestDownloadHandlerMissingID(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No file ID provided.")
}

func TestMethodNotAllowed(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/upload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var resp struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}
