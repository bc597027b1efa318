package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-xpost/xpost/internal/services"
	"github.com/go-xpost/xpost/internal/store"
)

// UploadHandler exposes the video submission and listing surface.
type UploadHandler struct {
	uploadService *services.UploadService
	maxUploadSize int64
}

func NewUploadHandler(us *services.UploadService, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{
		uploadService: us,
		maxUploadSize: maxUploadSize,
	}
}

// Create accepts a multipart video submission and schedules the upload.
// The response carries the record in processing state; the outcome is
// polled via GET /api/uploads/:id.
func (h *UploadHandler) Create(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	file, header, err := c.Request.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "No video file provided",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error":   "Video file too large",
			})
			return
		}
		log.Printf("[Handler] Failed to read upload body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Failed to read video file",
		})
		return
	}

	upload, _, err := h.uploadService.Submit(services.SubmitRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Data:        data,
		MimeType:    header.Header.Get("Content-Type"),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotConnected):
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authentication required. Please connect your X account first.",
			})
		case errors.Is(err, services.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{
				"success":     false,
				"error":       "Access token expired. Please reconnect your X account.",
				"needsReauth": true,
			})
		default:
			log.Printf("[Handler] Failed to submit upload: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to start upload",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"upload":  upload,
		"message": "Video upload and post creation started successfully",
	})
}

// List returns all upload records, newest first.
func (h *UploadHandler) List(c *gin.Context) {
	uploads, err := h.uploadService.List()
	if err != nil {
		log.Printf("[Handler] Failed to list uploads: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch uploads"})
		return
	}
	c.JSON(http.StatusOK, uploads)
}

// Get returns a single upload record by id.
func (h *UploadHandler) Get(c *gin.Context) {
	upload, err := h.uploadService.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
			return
		}
		log.Printf("[Handler] Failed to fetch upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch upload"})
		return
	}
	c.JSON(http.StatusOK, upload)
}
