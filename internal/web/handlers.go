package web

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"netsonic/internal/isp"
	"netsonic/internal/models"
	"netsonic/internal/payload"
	"netsonic/internal/speedtest"
)

const (
	serverName   = "NET-SONIC Speed Test"
	unknownISP   = "Unknown ISP"
	noStore      = "no-store, no-cache, must-revalidate, max-age=0"
	maxHistory   = 1000
	maxUploadLen = 4 * payload.MaxSize
)

func millis() int64 {
	return time.Now().UnixMilli()
}

// handlePingHead handles HEAD /api/ping latency probes
func (s *Server) handlePingHead(c *gin.Context) {
	c.Header("Cache-Control", noStore)
	c.Status(http.StatusOK)
}

// handlePing handles GET /api/ping requests
func (s *Server) handlePing(c *gin.Context) {
	c.Header("Cache-Control", noStore)
	c.JSON(http.StatusOK, gin.H{
		"timestamp": millis(),
		"server":    serverName,
	})
}

// handleDownload handles /api/download/:size requests
func (s *Server) handleDownload(c *gin.Context) {
	size, err := strconv.Atoi(c.Param("size"))
	if err != nil {
		size = payload.DefaultSize
	}
	data := s.payloads.Get(payload.ClampSize(size))

	c.Header("Cache-Control", noStore)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// handleUpload handles /api/upload requests. The body is counted and discarded.
func (s *Server) handleUpload(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadLen)
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Upload too large", "timestamp": millis()})
			return
		}
		log.Printf("Failed to read upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process upload", "timestamp": millis()})
		return
	}

	c.Header("Cache-Control", noStore)
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"received":       n,
		"content_length": c.Request.ContentLength,
		"timestamp":      millis(),
	})
}

// handleGetISP handles /api/get-isp requests. A public client address is
// looked up in the local ASN database first; otherwise the external provider
// chain answers for the server's own address.
func (s *Server) handleGetISP(c *gin.Context) {
	clientIP := c.ClientIP()
	if s.geoip != nil && isp.IsPublicIP(clientIP) {
		if name, ok := s.geoip.LookupISP(clientIP); ok {
			c.JSON(http.StatusOK, isp.Info{ISP: name, IP: clientIP})
			return
		}
	}

	info, ok := s.ispCache.get()
	if !ok && s.resolver != nil {
		info = s.resolver.Resolve(c.Request.Context())
		if info.Known() {
			s.ispCache.set(info)
		}
	}

	if !info.Known() {
		c.JSON(http.StatusOK, gin.H{"isp": unknownISP, "error": "Could not determine ISP"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// handleHistory handles /api/history requests
func (s *Server) handleHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not enabled"})
		return
	}

	limit := s.historyLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxHistory)
	}

	results, err := s.store.GetRecent(limit)
	if err != nil {
		log.Printf("Failed to load history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

// handleSaveResult handles POST /api/history from browser clients
func (s *Server) handleSaveResult(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not enabled"})
		return
	}

	var result models.SpeedTestResult
	if err := c.ShouldBindJSON(&result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := speedtest.CheckPlausible(result, s.maxMbps); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}

	if err := s.store.SaveResult(result); err != nil {
		log.Printf("Failed to save result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// handleSummary handles /api/summary requests
func (s *Server) handleSummary(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not enabled"})
		return
	}

	hours := 24
	if h := c.Query("hours"); h != "" {
		if parsed, err := strconv.Atoi(h); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	summary, err := s.store.GetSummary(time.Duration(hours) * time.Hour)
	if err != nil {
		log.Printf("Failed to load summary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
