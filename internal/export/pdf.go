package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

const disclaimer = "This report was generated by an AI assistant and is not a medical diagnosis. " +
	"Please consult a qualified doctor before acting on it."

// PDFGenerator renders analysis records as printable reports
type PDFGenerator struct {
	logger *zap.Logger
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
	}
}

// ReportData contains everything shown on a record report
type ReportData struct {
	Record    model.Record
	Profile   model.UserProfile
	Image     []byte // optional, JPEG or PNG
	ImageMIME string
	Generated time.Time
}

// Generate creates a PDF report for one record
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	g.logger.Info("generating PDF report",
		zap.String("record_id", data.Record.ID),
		zap.String("modality", string(data.Record.Modality)),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := translator(pdf)

	pdf.AddPage()

	g.addTitle(pdf, tr, data)
	g.addImage(pdf, data)
	g.addFindings(pdf, tr, data.Record.Result)
	g.addFooter(pdf, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.String("record_id", data.Record.ID),
		zap.Int("size_bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

// translator converts UTF-8 text to the core font code page
func translator(pdf *gofpdf.Fpdf) func(string) string {
	utf := pdf.UnicodeTranslatorFromDescriptor("")
	return func(s string) string {
		// the rupee sign is outside cp1252
		return utf(strings.ReplaceAll(s, "₹", "Rs. "))
	}
}

func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, tr func(string) string, data *ReportData) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, "Medical Image Analysis Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	generated := data.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf.SetFont("Arial", "", 12)
	if name := strings.TrimSpace(data.Profile.Name); name != "" {
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Patient: %s", name)), "", 1, "L", false, 0, "")
	}
	if data.Profile.Age != nil {
		pdf.CellFormat(0, 8, fmt.Sprintf("Age: %d", *data.Profile.Age), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 8, fmt.Sprintf("Image type: %s", modalityLabel(data.Record.Modality)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Analysed: %s", data.Record.CreatedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", generated.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

func (g *PDFGenerator) addImage(pdf *gofpdf.Fpdf, data *ReportData) {
	imageType := ""
	switch data.ImageMIME {
	case "image/jpeg":
		imageType = "JPG"
	case "image/png":
		imageType = "PNG"
	}
	if len(data.Image) == 0 || imageType == "" {
		return
	}

	opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	info := pdf.RegisterImageOptionsReader(data.Record.ID, opts, bytes.NewReader(data.Image))
	if pdf.Err() || info == nil {
		// a broken image must not cost the whole report
		g.logger.Warn("skipping unreadable record image", zap.String("record_id", data.Record.ID), zap.Error(pdf.Error()))
		pdf.ClearError()
		return
	}

	pdf.ImageOptions(data.Record.ID, 20, pdf.GetY(), 60, 0, true, opts, 0, "")
	pdf.Ln(5)
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

func (g *PDFGenerator) addParagraph(pdf *gofpdf.Fpdf, tr func(string) string, title, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	g.addSectionHeader(pdf, title)
	pdf.MultiCell(0, 5, tr(text), "", "L", false)
	pdf.Ln(4)
}

func (g *PDFGenerator) addFindings(pdf *gofpdf.Fpdf, tr func(string) string, result model.AnalysisResult) {
	g.addSectionHeader(pdf, "Assessment")

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, tr(result.Condition), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Confidence: %d%%", result.Confidence), "", 1, "L", false, 0, "")
	if result.IsEmergency {
		pdf.SetTextColor(200, 0, 0)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Emergency: seek medical care immediately", "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", 10)
	}
	if result.EstimatedCost != nil && *result.EstimatedCost != "" {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Estimated treatment cost: %s", *result.EstimatedCost)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	g.addParagraph(pdf, tr, "Description", result.Description)
	g.addParagraph(pdf, tr, "Details", result.Details)
	g.addParagraph(pdf, tr, "Observations", result.Observations)
	g.addParagraph(pdf, tr, "Recommended Care", result.Treatment)

	if len(result.ClinicalAlerts) > 0 {
		g.addSectionHeader(pdf, "Clinical Alerts")
		for _, alert := range result.ClinicalAlerts {
			pdf.MultiCell(0, 5, tr("  - "+alert), "", "L", false)
		}
		pdf.Ln(4)
	}
}

func (g *PDFGenerator) addFooter(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 4, tr(disclaimer), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
}

func modalityLabel(m model.Modality) string {
	switch m {
	case model.ModalitySkin:
		return "Skin"
	case model.ModalityWound:
		return "Wound"
	case model.ModalityEye:
		return "Eye"
	case model.ModalityXRay:
		return "X-ray"
	case model.ModalityDental:
		return "Dental"
	default:
		return "General"
	}
}
