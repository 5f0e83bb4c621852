// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package compose

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"github.com/skip2/go-qrcode"

	"storybook/internal/layout"
	"storybook/internal/models"
)

const (
	// imageDPI is the raster resolution used for pictures placed in the PDF.
	imageDPI = 144

	defaultFontSize = 14
	lineSpacing     = 1.2

	qrSize = 160.0 // points
)

// coreFonts maps lowercase family names to the PDF standard fonts.
var coreFonts = map[string]string{
	"helvetica":       "Helvetica",
	"arial":           "Helvetica",
	"sans-serif":      "Helvetica",
	"times":           "Times",
	"times new roman": "Times",
	"serif":           "Times",
	"courier":         "Courier",
	"courier new":     "Courier",
	"monospace":       "Courier",
}

// WritePDF renders the book to a file at path.
func WritePDF(path string, b Book) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := PDF(f, b); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// PDF renders the book. When the template has a source PDF each page is
// imported as the background of the matching output page; otherwise pages
// are blank at the stored size.
func PDF(w io.Writer, b Book) error {
	if err := b.validate(); err != nil {
		return err
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	// Pages are always added as "P" with their real size; "L" would swap
	// width and height again.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	var imp *gofpdi.Importer
	if b.Template.SourcePDF != "" {
		imp = gofpdi.NewImporter()
	}

	for i, page := range b.Template.Pages {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: page.Width, Ht: page.Height})
		if imp != nil {
			if err := importBackground(pdf, imp, b.Template.SourcePDF, i+1, page); err != nil {
				return err
			}
		}
		for n, p := range b.placements(i, page.Width, page.Height) {
			switch p.Element.Type {
			case models.ElementTypeImage:
				drawPDFImage(pdf, b, p, fmt.Sprintf("p%d-e%d", i, n))
			default:
				drawPDFText(pdf, tr, p, p.Element.Text(b.Values))
			}
		}
	}

	if b.ShareURL != "" {
		if err := addColophon(pdf, tr, b); err != nil {
			return err
		}
	}

	if pdf.Err() {
		return fmt.Errorf("compose pdf: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// importBackground places page pageNum of the source PDF on the current
// page. The importer panics on unreadable input, so that is turned into an
// error here.
func importBackground(pdf *gofpdf.Fpdf, imp *gofpdi.Importer, source string, pageNum int, page models.PageSize) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import page %d of %s: %v", pageNum, source, r)
		}
	}()
	tpl := imp.ImportPage(pdf, source, pageNum, "/MediaBox")
	imp.UseImportedTemplate(pdf, tpl, 0, 0, page.Width, page.Height)
	return nil
}

func drawPDFImage(pdf *gofpdf.Fpdf, b Book, p layout.Placement, name string) {
	r := p.Rect
	path, ok := b.Images[p.Element.Variable]
	if ok && path != "" {
		px := func(pt float64) int { return int(pt * imageDPI / 72) }
		img, err := loadFitted(path, px(r.Width), px(r.Height))
		if err == nil {
			var buf bytes.Buffer
			if err = imaging.Encode(&buf, img, imaging.PNG); err == nil {
				opts := gofpdf.ImageOptions{ImageType: "PNG"}
				pdf.RegisterImageOptionsReader(name, opts, &buf)
				pdf.ImageOptions(name, r.X, r.Y, r.Width, r.Height, false, opts, 0, "")
				return
			}
		}
		slog.Warn("image not placed", "variable", p.Element.Variable, "path", path, "error", err)
	}
	drawPDFPlaceholder(pdf, r, p.Element.Variable)
}

func drawPDFPlaceholder(pdf *gofpdf.Fpdf, r layout.Rect, label string) {
	setFill(pdf, placeholderBg)
	setDraw(pdf, placeholderInk)
	pdf.SetDashPattern([]float64{4, 3}, 0)
	pdf.Rect(r.X, r.Y, r.Width, r.Height, "FD")
	pdf.SetDashPattern([]float64{}, 0)
	if label == "" {
		return
	}
	pdf.SetFont("Helvetica", "I", 10)
	setText(pdf, placeholderInk)
	pdf.SetXY(r.X, r.Y+r.Height/2-6)
	pdf.CellFormat(r.Width, 12, label, "", 0, "C", false, 0, "")
}

func drawPDFText(pdf *gofpdf.Fpdf, tr func(string) string, p layout.Placement, text string) {
	el := p.Element
	r := p.Rect

	if bg := parseColor(el.BackgroundColor, transparent); bg.A != 0 {
		setFill(pdf, bg)
		pdf.Rect(r.X, r.Y, r.Width, r.Height, "F")
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	size := el.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	pdf.SetFont(pdfFontFamily(el.FontFamily), pdfFontStyle(el), size)
	setText(pdf, parseColor(el.Color, black))

	pdf.ClipRect(r.X, r.Y, r.Width, r.Height, false)
	pdf.SetXY(r.X, r.Y)
	pdf.MultiCell(r.Width, size*lineSpacing, tr(text), "", pdfAlign(el.Align), false)
	pdf.ClipEnd()
}

// addColophon appends a closing page with a QR code linking to the book.
func addColophon(pdf *gofpdf.Fpdf, tr func(string) string, b Book) error {
	png, err := qrcode.Encode(b.ShareURL, qrcode.Medium, 512)
	if err != nil {
		return fmt.Errorf("encode qr code: %w", err)
	}

	first := b.Template.Pages[0]
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: first.Width, Ht: first.Height})

	x := (first.Width - qrSize) / 2
	y := (first.Height - qrSize) / 2
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("colophon-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("colophon-qr", x, y, qrSize, qrSize, false, opts, 0, "")
	pdf.LinkString(x, y, qrSize, qrSize, b.ShareURL)

	pdf.SetFont("Helvetica", "", 11)
	setText(pdf, black)
	pdf.SetXY(0, y+qrSize+16)
	pdf.CellFormat(first.Width, 14, tr(b.Template.Name), "", 2, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(first.Width, 12, b.ShareURL, "", 0, "C", false, 0, b.ShareURL)
	return nil
}

func pdfFontFamily(family string) string {
	if f, ok := coreFonts[strings.ToLower(strings.TrimSpace(family))]; ok {
		return f
	}
	return "Helvetica"
}

func pdfFontStyle(el models.TemplateElement) string {
	var s strings.Builder
	if el.Bold {
		s.WriteByte('B')
	}
	if el.Italic {
		s.WriteByte('I')
	}
	if el.Underline {
		s.WriteByte('U')
	}
	if el.Strikethrough {
		s.WriteByte('S')
	}
	return s.String()
}

func pdfAlign(a models.Alignment) string {
	switch a {
	case models.AlignCenter:
		return "C"
	case models.AlignRight:
		return "R"
	default:
		return "L"
	}
}

func setFill(pdf *gofpdf.Fpdf, c color.NRGBA) { pdf.SetFillColor(int(c.R), int(c.G), int(c.B)) }
func setDraw(pdf *gofpdf.Fpdf, c color.NRGBA) { pdf.SetDrawColor(int(c.R), int(c.G), int(c.B)) }
func setText(pdf *gofpdf.Fpdf, c color.NRGBA) { pdf.SetTextColor(int(c.R), int(c.G), int(c.B)) }
