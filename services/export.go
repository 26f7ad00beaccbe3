package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"postal-prediction-api/models"
)

// ExportService renders a prediction into a downloadable PDF report.
type ExportService struct {
	now func() time.Time
}

func NewExportService() *ExportService {
	return &ExportService{now: time.Now}
}

// ItemReport builds the PDF report for a mail item prediction.
func (s *ExportService) ItemReport(p *models.ItemPrediction) ([]byte, error) {
	pdf := newReportPage(s.now(), "Algerie Post - Package Prediction Report")

	sectionHeader(pdf, "Package Information")
	labelRows(pdf, 50, [][2]string{
		{"Package ID:", p.ItemID},
		{"Current Location:", orNA(p.CurrentLocation)},
		{"Next Location:", orNA(p.NextLocation)},
		{"Event Type:", orNA(p.EventType)},
		{"Last Scan Date:", truncate(p.LastScanDate, 19)},
		{"Total Scans:", fmt.Sprintf("%d", p.TotalScans)},
	})

	sectionHeader(pdf, "Prediction Results")
	labelRows(pdf, 60, [][2]string{
		{"Time Since First Scan:", fmt.Sprintf("%.2f hours", p.TimeSinceFirstScan)},
		{"Predicted Route Duration:", fmt.Sprintf("%.2f hours", p.PredictedHours)},
		{"Total Estimated Time:", fmt.Sprintf("%.2f hours (%.1f days)", p.TotalEstimatedHours, p.TotalEstimatedHours/24)},
	})

	featureSection(pdf, p.Vector)
	journeySection(pdf, p.JourneyHistory)

	return finishReport(pdf)
}

// ReceptacleReport builds the PDF report for a receptacle prediction.
func (s *ExportService) ReceptacleReport(p *models.ReceptaclePrediction) ([]byte, error) {
	pdf := newReportPage(s.now(), "Algerie Post - Receptacle Prediction Report")

	sectionHeader(pdf, "Receptacle Information")
	labelRows(pdf, 50, [][2]string{
		{"Receptacle ID:", p.ReceptacleID},
		{"Flow Direction:", orNA(p.FlowDirection)},
		{"Current Location:", orNA(p.CurrentLocation)},
		{"Next Location:", orNA(p.NextLocation)},
		{"Event Type:", orNA(p.EventType)},
		{"Last Scan Date:", truncate(p.LastScanDate, 19)},
		{"Total Scans:", fmt.Sprintf("%d", p.TotalScans)},
	})

	sectionHeader(pdf, "Prediction Results")
	labelRows(pdf, 60, [][2]string{
		{"Time Since First Scan:", fmt.Sprintf("%.2f hours", p.TimeSinceFirstScan)},
		{"Predicted Route Duration:", fmt.Sprintf("%.2f hours", p.PredictedHours)},
		{"Total Estimated Time:", fmt.Sprintf("%.2f hours (%.1f days)", p.TotalEstimatedHours, p.TotalEstimatedHours/24)},
	})

	featureSection(pdf, p.Vector)
	journeySection(pdf, p.JourneyHistory)

	return finishReport(pdf)
}

func newReportPage(now time.Time, title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, "Generated on: "+now.Format("2006-01-02 15:04:05"), "", 1, "R", false, 0, "")
	pdf.Ln(5)
	return pdf
}

func sectionHeader(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(3)
}

func labelRows(pdf *fpdf.Fpdf, labelWidth float64, rows [][2]string) {
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(labelWidth, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func featureSection(pdf *fpdf.Fpdf, v models.FeatureVector) {
	sectionHeader(pdf, "Features Used for Prediction")
	pdf.SetFont("Arial", "", 9)
	values := v.Strings()
	for i, field := range v.Fields() {
		pdf.CellFormat(70, 6, truncate(field.Name, 35), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, truncate(values[i], 50), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func journeySection(pdf *fpdf.Fpdf, history []models.JourneyEntry) {
	sectionHeader(pdf, "Journey History (Last 10)")

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(45, 7, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 7, "Location", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 7, "Next Location", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 7, "Event", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 8)
	for _, entry := range history {
		pdf.CellFormat(45, 6, truncate(entry.Date, 19), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, truncate(entry.Facility, 20), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, truncate(entry.NextFacility, 20), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, truncate(entry.EventType, 15), "1", 1, "L", false, 0, "")
	}
}

func finishReport(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate cuts s to at most n characters, counting runes so an accented
// facility name is never split mid-character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
