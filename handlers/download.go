package handlers

import (
	"errors"
	"html"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"file-manager/services"
)

// DownloadFile redirects the client to a temporary signed URL so the object
// store serves the bytes directly. Errors render a small HTML page, since
// the browser follows this link directly rather than through the API client.
func (h *FileHandler) DownloadFile(c *gin.Context) {
	rawID := c.Query("id")
	if rawID == "" {
		downloadErrorPage(c, "No file ID provided.")
		return
	}

	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		downloadErrorPage(c, "Invalid file ID format.")
		return
	}

	link, err := h.fileService.GetDownloadLink(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			downloadErrorPage(c, "File not found in our records.")
			return
		}
		downloadErrorPage(c, "Could not prepare the download link. Please try again later.")
		return
	}

	c.Redirect(http.StatusFound, link.URL)
}

func downloadErrorPage(c *gin.Context, message string) {
	page := "<!DOCTYPE html><html><head><title>Download Error</title>" +
		"<style>body{font-family:sans-serif;padding:20px;text-align:center;}h1{color:red;}</style></head><body>" +
		"<h1>Download Error</h1><p>" + html.EscapeString(message) + "</p>" +
		"<p><a href='/'>Back to File List</a></p></body></html>"

	c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(page))
}
