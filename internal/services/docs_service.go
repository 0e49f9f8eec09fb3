package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
	"transferbook/internal/utils"

	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"
)

// DocsService renders the booking confirmation and invoice PDFs.
type DocsService struct {
	RequestID string
	Loader    func(ctx context.Context, sessionID string) (models.BookingReceipt, error)
}

func (s DocsService) GenerateConfirmation(ctx context.Context, sessionID string) ([]byte, string, error) {
	r, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_confirmation", "rendering booking confirmation",
		zap.String("booking_id", r.BookingID))
	return buildConfirmationPDF(r)
}

func (s DocsService) GenerateInvoice(ctx context.Context, sessionID string) ([]byte, string, error) {
	r, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_invoice", "rendering invoice",
		zap.String("booking_id", r.BookingID))
	return buildInvoicePDF(r)
}

func (s DocsService) load(ctx context.Context, sessionID string) (models.BookingReceipt, error) {
	if s.Loader == nil {
		return models.BookingReceipt{}, domain.InternalError{Msg: "document loader not configured"}
	}
	r, err := s.Loader(ctx, sessionID)
	if err != nil {
		return r, err
	}
	if strings.TrimSpace(r.BookingID) == "" {
		return r, domain.NotFoundError{Resource: "booking receipt"}
	}
	return r, nil
}

func newDoc(title string) (*gofpdf.Fpdf, func(string) string) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()
	// core fonts are cp1252; the translator maps £ and € into it
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addressOf(loc *models.Location) string {
	if loc == nil {
		return ""
	}
	return loc.Address
}

func buildConfirmationPDF(r models.BookingReceipt) ([]byte, string, error) {
	pdf, tr := newDoc("Booking Confirmation")
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING CONFIRMATION")
	pdf.Ln(12)

	vehicle := "-"
	if v := r.Trip.SelectedVehicle; v != nil {
		vehicle = safe(v.Name, v.ID)
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking reference : %s", safe(r.BookingID, "-")),
		fmt.Sprintf("Passenger name    : %s", safe(r.Details.FullName, "-")),
		fmt.Sprintf("Email             : %s", safe(r.Details.Email, "-")),
		fmt.Sprintf("Phone             : %s", safe(r.Details.Phone, "-")),
		fmt.Sprintf("Date / time       : %s %s", safe(utils.HumanDate(dateOnly(r.Trip.Date)), "-"), safe(timeHM(r.Trip.Time), "")),
		fmt.Sprintf("Pickup            : %s", safe(addressOf(r.Trip.Pickup), "-")),
	}
	for i, stop := range r.Trip.Stops {
		lines = append(lines, fmt.Sprintf("Stop %-13d: %s", i+1, safe(stop.Address, "-")))
	}
	lines = append(lines,
		fmt.Sprintf("Dropoff           : %s", safe(addressOf(r.Trip.Dropoff), "-")),
		fmt.Sprintf("Passengers        : %d", r.Trip.Passengers),
		fmt.Sprintf("Luggage           : %d checked, %d hand", r.Trip.CheckedLuggage, r.Trip.HandLuggage),
		fmt.Sprintf("Vehicle           : %s", vehicle),
	)
	for _, s := range lines {
		pdf.Cell(0, 7, tr(s))
		pdf.Ln(7)
	}

	if req := strings.TrimSpace(r.Details.SpecialRequests); req != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Special requests")
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(req), "", "", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please keep this reference to hand. Your driver will contact you on the phone number above before pickup.", "", "", false)

	b, err := output(pdf)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("CONFIRMATION_%s_%s.pdf", safeFilenamePart(r.BookingID), safeFilenamePart(r.Details.FullName))
	return b, filename, nil
}

// breakdownLabels orders the known price components; unknown keys follow
// alphabetically.
var breakdownLabels = map[string]string{
	"base":       "Base fare",
	"distance":   "Distance",
	"stops":      "Additional stops",
	"meet_greet": "Meet & greet",
	"night":      "Night supplement",
}

var breakdownOrder = []string{"base", "distance", "stops", "meet_greet", "night"}

func breakdownKeys(b map[string]float64) []string {
	keys := make([]string, 0, len(b))
	seen := map[string]bool{}
	for _, k := range breakdownOrder {
		if _, ok := b[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range b {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func buildInvoicePDF(r models.BookingReceipt) ([]byte, string, error) {
	pdf, tr := newDoc("Invoice")
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	invNo := "INV-" + safeFilenamePart(r.BookingID)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Invoice no : "+invNo)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued     : "+r.CreatedAt.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Name  : %s", safe(r.Details.FullName, "-"))))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Email : %s", safe(r.Details.Email, "-"))))
	pdf.Ln(10)

	desc := fmt.Sprintf("Private transfer %s -> %s (%s %s)",
		safe(addressOf(r.Trip.Pickup), "-"), safe(addressOf(r.Trip.Dropoff), "-"),
		safe(utils.HumanDate(dateOnly(r.Trip.Date)), "-"), safe(timeHM(r.Trip.Time), ""),
	)
	if n := len(r.Trip.Stops); n > 0 {
		desc += fmt.Sprintf(", %d stop(s)", n)
	}

	var price models.Price
	if v := r.Trip.SelectedVehicle; v != nil {
		price = v.Price
		desc += ", " + safe(v.Name, v.ID)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Details:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr("1) "+desc), "", "", false)
	pdf.Ln(2)

	for _, k := range breakdownKeys(price.Breakdown) {
		label := breakdownLabels[k]
		if label == "" {
			label = strings.ReplaceAll(k, "_", " ")
		}
		pdf.CellFormat(120, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, tr(utils.FormatPrice(price.Breakdown[k], price.Currency)), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(120, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, tr(utils.FormatPrice(price.Amount, price.Currency)), "T", 1, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Prices include VAT where applicable. Waiting time beyond the included allowance is charged separately.", "", "", false)

	b, err := output(pdf)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("INVOICE_%s_%s.pdf", safeFilenamePart(r.BookingID), safeFilenamePart(r.Details.FullName))
	return b, filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func dateOnly(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 10 {
		return v[:10]
	}
	return v
}

func timeHM(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 5 {
		return v[:5]
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", "'", "")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
