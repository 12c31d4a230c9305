package api

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/challan/internal/export"
	"example.com/backstage/services/challan/internal/models"
	"example.com/backstage/services/challan/internal/service"
)

const mimePDF = "application/pdf"

// GenerateResponse is returned instead of the document when the client asks for JSON
type GenerateResponse struct {
	Message   string `json:"message"`
	ChallanID uint   `json:"challanId"`
	ChallanNo string `json:"challanNo"`
}

// ParseItemsRequest is the body of POST /api/parse-items
type ParseItemsRequest struct {
	Text *string `json:"text"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// generatePDF validates the order, renders and stores it, then returns the
// document or a confirmation
func (s *Server) generatePDF(c *gin.Context) {
	if c.ContentType() != gin.MIMEJSON {
		WriteError(c, ErrUnsupportedMediaType)
		return
	}

	var req service.CreateChallanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, ErrInvalidJSON)
		return
	}

	input, err := req.Input()
	if err != nil {
		WriteError(c, err)
		return
	}

	challan, err := s.service.CreateChallan(c.Request.Context(), input)
	if err != nil {
		WriteError(c, err)
		return
	}

	if s.wantsJSON(c) {
		c.JSON(http.StatusOK, GenerateResponse{
			Message:   "PDF generated successfully",
			ChallanID: challan.ID,
			ChallanNo: challan.ChallanNo,
		})
		return
	}

	name := DocumentFileName(challan.CustomerName, challan.ChallanNo, challan.CreatedAt.UTC().Format("20060102"))
	s.writePDF(c, name, challan.PDFContent)
}

// wantsJSON picks the create response: ?response= wins, then the Accept
// header, then the configured default
func (s *Server) wantsJSON(c *gin.Context) bool {
	switch strings.ToLower(c.Query("response")) {
	case "json":
		return true
	case "pdf":
		return false
	}

	accept := c.GetHeader("Accept")
	if strings.Contains(accept, gin.MIMEJSON) {
		return true
	}
	if strings.Contains(accept, mimePDF) {
		return false
	}
	return strings.EqualFold(s.cfg.DefaultResponse, "json")
}

func (s *Server) listChallans(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	summaries, err := s.service.ListChallans(c.Request.Context(), filter)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

func (s *Server) downloadPDF(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	doc, err := s.service.GetDocument(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}

	name := DocumentFileName(doc.CustomerName, doc.ChallanNo, doc.CreatedAt.UTC().Format("20060102"))
	s.writePDF(c, name, doc.Content)
}

func (s *Server) getChallan(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	challan, err := s.service.GetChallan(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            challan.ID,
		"customer_name": challan.CustomerName,
		"challan_no":    challan.ChallanNo,
		"created_at":    challan.CreatedAt,
		"items":         challan.Items,
		"total_items":   challan.TotalItems,
		"total_price":   challan.TotalPrice,
		"download_url":  models.DownloadURL(challan.ID),
	})
}

func (s *Server) exportChallans(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	data, err := s.service.ExportChallans(c.Request.Context(), filter)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.Header("Content-Disposition", contentDisposition(export.FileName(s.now())))
	c.Data(http.StatusOK, export.ContentType, data)
}

func (s *Server) parseItems(c *gin.Context) {
	var req ParseItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, ErrInvalidJSON)
		return
	}
	if req.Text == nil {
		WriteError(c, models.MissingFieldsError([]string{"text"}))
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": s.service.ParseItems(*req.Text)})
}

func (s *Server) health(c *gin.Context) {
	status, err := s.service.Health(c.Request.Context())
	resp := HealthResponse{
		Status:    status.Status,
		Timestamp: status.Timestamp.Format(time.RFC3339),
	}
	if err != nil {
		log.Error().Err(err).Msg("Health check failed")
		resp.Error = err.Error()
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) writePDF(c *gin.Context, name string, content []byte) {
	c.Header("Content-Disposition", contentDisposition(name))
	c.Data(http.StatusOK, mimePDF, content)
}

func bindID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		WriteError(c, ErrInvalidID)
		return 0, false
	}
	return uint(id), true
}

func bindFilter(c *gin.Context) (models.ListFilter, bool) {
	var filter models.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		WriteError(c, models.NewValidationError("Invalid query parameters: "+err.Error()))
		return filter, false
	}
	return filter, true
}

// DocumentFileName builds "{customer}_{YYYYMMDD}_challan_{no}.pdf". Only
// letters, digits, spaces and underscores of the customer name are kept.
func DocumentFileName(customerName, challanNo, date string) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' {
			return r
		}
		return -1
	}, customerName)

	return fmt.Sprintf("%s_%s_challan_%s.pdf", strings.TrimSpace(safe), date, challanNo)
}

func contentDisposition(name string) string {
	if value := mime.FormatMediaType("attachment", map[string]string{"filename": name}); value != "" {
		return value
	}
	return "attachment"
}
