package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peerdrop/signaling/internal/filestore"
)

// UploadFileRequest is the body for temporary file uploads. Data arrives
// base64-encoded per encoding/json convention.
type UploadFileRequest struct {
	Data     []byte         `json:"data" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

// UploadFile stores a file under a fresh id with the configured TTL.
func (a *API) UploadFile(c *gin.Context) {
	var req UploadFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileID := a.Files.Put(req.Data, req.Metadata)
	c.JSON(http.StatusCreated, gin.H{"fileId": fileID})
}

// GetFile returns a stored file if it exists and has not expired.
func (a *API) GetFile(c *gin.Context) {
	fileID := c.Param("fileId")

	f, err := a.Files.Get(fileID)
	switch {
	case errors.Is(err, filestore.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "file has expired"})
		return
	case errors.Is(err, filestore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     f.Data,
		"metadata": f.Metadata,
	})
}

// GenerateLink uploads a file and returns a shareable link id for it.
func (a *API) GenerateLink(c *gin.Context) {
	var req UploadFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileID := a.Files.Put(req.Data, req.Metadata)
	c.JSON(http.StatusCreated, gin.H{"link": fileID})
}
