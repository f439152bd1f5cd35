package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"file-manager/models"
	"file-manager/services"
)

type FileHandler struct {
	fileService *services.FileService
}

func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{
		fileService: fileService,
	}
}

// ListFiles returns all file records, most recent first.
func (h *FileHandler) ListFiles(c *gin.Context) {
	files, err := h.fileService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Database error occurred while fetching files.",
		})
		return
	}

	if files == nil {
		files = []models.File{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   files,
	})
}

// UploadFile accepts a multipart upload in the "uploadedFile" field.
func (h *FileHandler) UploadFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("uploadedFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": `No file uploaded or incorrect field name. Expected "uploadedFile".`,
		})
		return
	}
	defer file.Close()

	record, err := h.fileService.Upload(c.Request.Context(), file, header.Filename, header.Size)
	if err != nil {
		status, message := uploadErrorResponse(err)
		c.JSON(status, gin.H{
			"success": false,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusCreated, models.UploadResponse{
		Success:   true,
		Message:   "File uploaded and record created successfully.",
		FileID:    record.ID,
		ObjectKey: record.ObjectKey,
		Filename:  record.OriginalFilename,
	})
}

// DeleteFile removes the object and its metadata record.
func (h *FileHandler) DeleteFile(c *gin.Context) {
	var req models.DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing or invalid file_id in request body.",
		})
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), req.FileID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "File record not found in database.",
			})
			return
		}

		var storeErr *services.ObjectStoreError
		if errors.As(err, &storeErr) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Error deleting file from object storage.",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to delete file record from database.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File deleted successfully.",
	})
}

// uploadErrorResponse maps the service error taxonomy to HTTP statuses.
// Validation failures keep their specific client status; store failures are
// generic server errors.
func uploadErrorResponse(err error) (int, string) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Reason {
		case services.ReasonTooLarge:
			return http.StatusRequestEntityTooLarge, validationErr.Message
		case services.ReasonBadType:
			return http.StatusUnsupportedMediaType, validationErr.Message
		default:
			return http.StatusBadRequest, validationErr.Message
		}
	}

	var objectErr *services.ObjectStoreError
	if errors.As(err, &objectErr) {
		return http.StatusInternalServerError, "Error uploading file to object storage."
	}

	var metaErr *services.MetadataStoreError
	if errors.As(err, &metaErr) {
		return http.StatusInternalServerError, "File uploaded to storage, but failed to save record to database."
	}

	return http.StatusInternalServerError, "An unexpected error occurred during upload."
}
