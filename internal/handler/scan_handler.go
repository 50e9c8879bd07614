package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Paypay0in/my-trippie/internal/model"
	"github.com/Paypay0in/my-trippie/internal/service"
)

// ScanHandler handles AI extraction requests
type ScanHandler struct {
	ledgerService service.LedgerService
}

// NewScanHandler creates a new scan handler
func NewScanHandler(ledgerService service.LedgerService) *ScanHandler {
	return &ScanHandler{
		ledgerService: ledgerService,
	}
}

// SmartScan handles the POST /v1/scan endpoint
// @Summary Smart-scan a receipt image
// @Description Extracts an expense from a receipt image and routes it into a matching archived trip, the open draft, or a brand-new draft
// @Tags scan
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Receipt, invoice or booking image"
// @Success 200 {object} service.ScanOutcome "Where the expense landed"
// @Failure 400 {object} model.ErrorResponse "Missing image"
// @Failure 422 {object} model.ErrorResponse "No amount recognized"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/scan [post]
func (h *ScanHandler) SmartScan(c *gin.Context) {
	file, header, err := getFormFile(c, "image")
	if err != nil {
		respondBadRequest(c, ErrFileUpload, newErrorDetail("image", "Receipt image is required"))
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		logError(c, "read_scan_image", err, map[string]interface{}{
			"filename": header.Filename,
		})
		respondInternalServerError(c, ErrFileUpload)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	outcome, err := h.ledgerService.SmartScanImage(c.Request.Context(), imageData, mimeType)
	if err != nil {
		respondServiceError(c, "smart_scan", err)
		return
	}
	respondOK(c, outcome)
}

// ParseText handles the POST /v1/parse-text endpoint
// @Summary Parse a free-form expense sentence
// @Description Extracts a structured expense candidate from text without changing the draft
// @Tags scan
// @Accept json
// @Produce json
// @Param request body model.ParseTextRequest true "Expense sentence"
// @Success 200 {object} gemini.ExtractedExpense "Extracted candidate"
// @Failure 422 {object} model.ErrorResponse "No amount recognized"
// @Router /v1/parse-text [post]
func (h *ScanHandler) ParseText(c *gin.Context) {
	var req model.ParseTextRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}
	result, err := h.ledgerService.ParseText(c.Request.Context(), req.Text)
	if err != nil {
		respondServiceError(c, "parse_text", err)
		return
	}
	respondOK(c, result)
}
