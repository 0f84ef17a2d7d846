package exports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/angelmondragon/wayfarer-backend/internal/pricing"
	"github.com/angelmondragon/wayfarer-backend/internal/trips"
)

const qrSize = 256

// Renderer lays out an itinerary as an A4 PDF.
type Renderer struct {
	compress bool
	now      func() time.Time
}

type RendererOption func(*Renderer)

// WithoutCompression leaves content streams readable.
func WithoutCompression() RendererOption {
	return func(r *Renderer) { r.compress = false }
}

func WithClock(now func() time.Time) RendererOption {
	return func(r *Renderer) { r.now = now }
}

func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{compress: true, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// QRPayload is the text encoded in a booked itinerary's QR code.
func QRPayload(trip trips.SavedTrip) string {
	return fmt.Sprintf("wayfarer:booking:%s|trip=%s", trip.TransactionID, trip.ID)
}

// Render draws the trip with its cost breakdown. Booked trips carry a QR
// code of the booking reference.
func (r *Renderer) Render(trip trips.SavedTrip, b pricing.Breakdown) ([]byte, error) {
	it := trip.Itinerary
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(it.TripName, true)
	pdf.SetCreationDate(r.now())
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, tr(it.TripName), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	prefs := trip.Preferences
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s to %s, %s to %s", prefs.Origin, prefs.Destination, prefs.StartDate, prefs.EndDate)), "", 1, "L", false, 0, "")

	if trip.IsBooked {
		png, err := qrcode.Encode(QRPayload(trip), qrcode.Medium, qrSize)
		if err != nil {
			return nil, fmt.Errorf("encode booking qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("booking-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("booking-qr", 155, 15, 35, 35, false, opts, 0, "")
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, tr("Booking reference: "+trip.TransactionID), "", 1, "L", false, 0, "")
	}

	if it.DestinationOverview != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(130, 5, tr(it.DestinationOverview), "", "L", false)
	}
	pdf.Ln(6)

	for _, day := range it.Days {
		pdf.SetFont("Arial", "B", 13)
		pdf.SetFillColor(235, 245, 243)
		pdf.CellFormat(0, 9, tr(fmt.Sprintf("Day %d: %s", day.Day, day.Theme)), "", 1, "L", true, 0, "")
		for _, a := range day.Activities {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(20, 6, tr(a.Time), "", 0, "L", false, 0, "")
			pdf.CellFormat(120, 6, tr(a.Name), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, money(it.Currency, a.EstimatedCost), "", 1, "R", false, 0, "")
			if a.Location != "" || a.Description != "" {
				pdf.SetFont("Arial", "", 9)
				pdf.SetX(40)
				pdf.MultiCell(130, 5, tr(joinNonEmpty(a.Location, a.Description)), "", "L", false)
			}
		}
		pdf.Ln(3)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, "Cost summary", "B", 1, "L", false, 0, "")
	rows := []struct {
		label string
		value decimal.Decimal
	}{
		{"Activities", b.BaseCost},
		{"Guide", b.GuideCharges},
		{"Service fee", b.ServiceFee},
		{"Taxes", b.Taxes},
		{"Discount", b.Discount.Neg()},
	}
	pdf.SetFont("Arial", "", 11)
	for _, row := range rows {
		pdf.CellFormat(120, 7, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, money(it.Currency, row.value), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(120, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, money(it.Currency, b.FinalTotal), "T", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(120, 6, fmt.Sprintf("Per person (%d travelers)", b.TotalTravelers), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, money(it.Currency, b.PerPersonCost), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func money(currency string, v decimal.Decimal) string {
	return fmt.Sprintf("%s %s", currency, v.StringFixed(0))
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " - "
		}
		out += p
	}
	return out
}
