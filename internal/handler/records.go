package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medassist/internal/audit"
	"github.com/vcscsvcscs/medassist/internal/azure"
	"github.com/vcscsvcscs/medassist/internal/export"
	"github.com/vcscsvcscs/medassist/internal/repository"
	"github.com/vcscsvcscs/medassist/pkg/api"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RecordsHandler implements record history and export endpoints
type RecordsHandler struct {
	records  *repository.RecordRepository
	profiles *repository.ProfileRepository
	images   azure.BlobStorage
	pdf      *export.PDFGenerator
	workbook *export.RecordsWorkbook
	auditor  Auditor
	logger   *zap.Logger
}

// NewRecordsHandler creates a new RecordsHandler. images may be nil when
// analysed images are not kept.
func NewRecordsHandler(
	records *repository.RecordRepository,
	profiles *repository.ProfileRepository,
	images azure.BlobStorage,
	pdf *export.PDFGenerator,
	workbook *export.RecordsWorkbook,
	auditor Auditor,
	logger *zap.Logger,
) *RecordsHandler {
	return &RecordsHandler{
		records:  records,
		profiles: profiles,
		images:   images,
		pdf:      pdf,
		workbook: workbook,
		auditor:  auditor,
		logger:   logger,
	}
}

// ListRecords returns all saved records, newest first
func (h *RecordsHandler) ListRecords(c *gin.Context) {
	c.JSON(http.StatusOK, api.RecordList{Records: h.records.List(c.Request.Context())})
}

// DeleteRecord removes one record
func (h *RecordsHandler) DeleteRecord(c *gin.Context, id string) {
	err := h.records.Delete(c.Request.Context(), id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		notFound(c, "Record not found")
		return
	}
	if err != nil {
		respondError(c, h.logger, "delete_record", err)
		return
	}
	recordAudit(c, h.auditor, h.logger, audit.OperationDelete, audit.ResourceRecord, id)
	c.Status(http.StatusNoContent)
}

// GetRecordReport renders one record as a PDF
func (h *RecordsHandler) GetRecordReport(c *gin.Context, id string) {
	ctx := c.Request.Context()

	record, err := h.records.Get(ctx, id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		notFound(c, "Record not found")
		return
	}
	if err != nil {
		respondError(c, h.logger, "record_report", err)
		return
	}

	data := &export.ReportData{
		Record:    *record,
		Profile:   h.profiles.Get(ctx),
		Generated: time.Now(),
	}
	if record.ImageRef != nil && h.images != nil {
		image, mimeType, err := h.images.DownloadImage(ctx, *record.ImageRef)
		if err != nil {
			// the report is still useful without the picture
			h.logger.Warn("failed to load record image for report",
				zap.String("record_id", id),
				zap.Error(err),
			)
		} else {
			data.Image = image
			data.ImageMIME = mimeType
		}
	}

	pdfBytes, err := h.pdf.Generate(data)
	if err != nil {
		respondError(c, h.logger, "record_report", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=medical_report_%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
	recordAudit(c, h.auditor, h.logger, audit.OperationExport, audit.ResourceReport, id)

	h.logger.Info("report downloaded",
		zap.String("record_id", id),
		zap.Int("size_bytes", len(pdfBytes)),
	)
}

// GetRecordImage returns the image a record was created from
func (h *RecordsHandler) GetRecordImage(c *gin.Context, id string) {
	ctx := c.Request.Context()

	record, err := h.records.Get(ctx, id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		notFound(c, "Record not found")
		return
	}
	if err != nil {
		respondError(c, h.logger, "record_image", err)
		return
	}
	if record.ImageRef == nil || h.images == nil {
		notFound(c, "No image is stored for this record")
		return
	}

	image, mimeType, err := h.images.DownloadImage(ctx, *record.ImageRef)
	if errors.Is(err, azure.ErrBlobNotFound) {
		notFound(c, "No image is stored for this record")
		return
	}
	if err != nil {
		respondError(c, h.logger, "record_image", err)
		return
	}

	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, mimeType, image)
}

// ExportRecords returns every record as a spreadsheet
func (h *RecordsHandler) ExportRecords(c *gin.Context) {
	records := h.records.List(c.Request.Context())

	data, err := h.workbook.Generate(records)
	if err != nil {
		respondError(c, h.logger, "export_records", err)
		return
	}

	filename := fmt.Sprintf("medical_records_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
	recordAudit(c, h.auditor, h.logger, audit.OperationExport, audit.ResourceRecord, "")

	h.logger.Info("records exported",
		zap.Int("records", len(records)),
		zap.Int("size_bytes", len(data)),
	)
}
