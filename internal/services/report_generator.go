package services

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"
	"github.com/khatanna/salon-service/internal/config"
	"github.com/sirupsen/logrus"
)

// ReportGenerator dibuja los reportes tabulares en PDF
type ReportGenerator struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewReportGenerator crea una nueva instancia del generador
func NewReportGenerator(cfg *config.Config, logger *logrus.Logger) *ReportGenerator {
	return &ReportGenerator{
		cfg:    cfg,
		logger: logger,
	}
}

const (
	pageLeft    = 15.0
	logoSize    = 15.0
	headRowH    = 7.0
	bodyRowH    = 6.0
	tableGap    = 10.0
	summaryLeft = 150.0
)

// registerLogo intenta registrar el logo decorativo. Si el archivo no puede
// leerse se registra una advertencia y el reporte sigue sin logo; nunca
// cancela la generación.
func (g *ReportGenerator) registerLogo(pdf *gofpdf.Fpdf) bool {
	data, err := os.ReadFile(g.cfg.Report.LogoPath)
	if err != nil {
		g.logger.WithError(err).Warn("Could not load report logo, continuing without it")
		return false
	}

	pdf.RegisterImageOptionsReader("logo", gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
	if pdf.Err() {
		g.logger.WithField("error", pdf.Error().Error()).Warn("Could not register report logo, continuing without it")
		pdf.ClearError()
		return false
	}
	return true
}

// drawHeader dibuja el logo y el nombre del salón alineado a la derecha
func (g *ReportGenerator) drawHeader(pdf *gofpdf.Fpdf, salonName string, hasLogo bool, pageWidth float64) {
	if hasLogo {
		pdf.ImageOptions("logo", pageLeft, 15, logoSize, logoSize, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	pdf.SetFont("Arial", "", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(pageLeft, 18)
	pdf.CellFormat(pageWidth-2*pageLeft, 8, fmt.Sprintf("Peluqueria: %s", salonName), "", 0, "R", false, 0, "")
	pdf.SetY(40)
}

// drawTable dibuja una tabla con encabezado opcional relleno y cuerpo con
// bordes, al estilo de las tablas de los reportes
func (g *ReportGenerator) drawTable(pdf *gofpdf.Fpdf, left float64, head []string, widths []float64, aligns []string, rows [][]string) {
	if len(head) > 0 {
		pdf.SetFillColor(255, 200, 150)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "B", 9)
		pdf.SetX(left)
		for i, title := range head {
			pdf.CellFormat(widths[i], headRowH, title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "", 8)
	pdf.SetFillColor(255, 255, 255)
	for _, row := range rows {
		pdf.SetX(left)
		for i, cell := range row {
			pdf.CellFormat(widths[i], bodyRowH, cell, "1", 0, aligns[i], false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// sectionTitle escribe el título de una sección de tablas
func (g *ReportGenerator) sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "", 10)
	pdf.SetX(pageLeft)
	pdf.CellFormat(60, 5, title, "", 1, "L", false, 0, "")
}

// RenderDaily dibuja el reporte multi-página, una página por día
func (g *ReportGenerator) RenderDaily(pages []DailyPage, salonName string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	hasLogo := g.registerLogo(pdf)
	pageWidth, _ := pdf.GetPageSize()

	for pageIndex, page := range pages {
		pdf.AddPage()
		if pageIndex == 0 {
			g.drawHeader(pdf, salonName, hasLogo, pageWidth)
		} else {
			pdf.SetY(15)
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.SetX(pageLeft)
		pdf.CellFormat(60, 6, fmt.Sprintf("Fecha: %s", page.Date), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		// Tabla de visitas del día
		g.sectionTitle(pdf, "Visitas")
		visitWidths := []float64{10, 30, 28, 24, 34, 28, 28, 28, 20, 20, 20}
		visitAligns := []string{"C", "L", "L", "L", "L", "L", "L", "L", "C", "C", "C"}
		visitRows := make([][]string, 0, len(page.Rows)+1)
		for _, row := range page.Rows {
			visitRows = append(visitRows, []string{
				fmt.Sprintf("%d", row.Index),
				row.PetName,
				row.Race,
				row.Color,
				row.OwnerName,
				row.ChopedBy,
				row.BathedBy,
				row.BrushedBy,
				row.Price.StringFixed(2),
				fmt.Sprintf("%s Bs.", row.Cash),
				fmt.Sprintf("%s Bs.", row.QR),
			})
		}
		visitRows = append(visitRows, []string{
			"Total", "", "", "", "", "", "", "",
			fmt.Sprintf("%s Bs.", page.TotalPrice.StringFixed(2)),
			fmt.Sprintf("%s Bs.", page.TotalCash),
			fmt.Sprintf("%s Bs.", page.TotalQR),
		})
		g.drawTable(pdf, pageLeft,
			[]string{"Nro.", "Mascota", "Raza", "Color", "Dueño", "Corte", "Baño", "Cepillado", "Costo", "Efectivo", "QR"},
			visitWidths, visitAligns, visitRows)
		pdf.Ln(tableGap)

		// Tabla de gastos, solo si hubo gastos ese día
		if len(page.Bills) > 0 {
			g.sectionTitle(pdf, "Gastos")
			billRows := make([][]string, 0, len(page.Bills)+1)
			for _, bill := range page.Bills {
				billRows = append(billRows, []string{bill.UserName, bill.Concept, bill.Amount.String(), bill.Time})
			}
			billRows = append(billRows, []string{"Total", "", fmt.Sprintf("%s Bs.", page.BillsTotal), ""})
			g.drawTable(pdf, pageLeft,
				[]string{"Usuario", "Concepto", "Monto", "Hora"},
				[]float64{50, 90, 30, 30},
				[]string{"L", "L", "C", "C"},
				billRows)
			pdf.Ln(tableGap)
		}

		// Trabajos realizados por usuario
		g.sectionTitle(pdf, "Trabajos realizados")
		g.drawTable(pdf, pageLeft,
			[]string{"Usuario", "Baños", "Cortes", "Cepillados"},
			[]float64{60, 30, 30, 30},
			[]string{"L", "C", "C", "C"},
			workRowsFor(append(page.Work, page.WorkTotals)))
		pdf.Ln(tableGap)

		// Tablas finales lado a lado: trabajos de la tarde y resumen financiero
		finalY := pdf.GetY()
		g.drawTable(pdf, pageLeft, nil,
			[]float64{120},
			[]string{"L"},
			[][]string{
				{fmt.Sprintf("Cortes después de las 3PM: %s", page.AfternoonStylistName)},
				{fmt.Sprintf("%d", page.ChopedAfternoon)},
				{fmt.Sprintf("Baños después de las 3PM: %s", page.AfternoonStylistName)},
				{fmt.Sprintf("%d", page.BathedAfternoon)},
			})

		pdf.SetY(finalY)
		g.drawTable(pdf, summaryLeft, nil,
			[]float64{60, 50},
			[]string{"L", "C"},
			financialRows(page.Financial))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error generating daily report PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderMonthly dibuja el resumen mensual de una sola página
func (g *ReportGenerator) RenderMonthly(summary MonthlySummary, salonName string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	hasLogo := g.registerLogo(pdf)
	pageWidth, _ := pdf.GetPageSize()

	pdf.AddPage()
	g.drawHeader(pdf, salonName, hasLogo, pageWidth)

	pdf.SetFont("Arial", "", 12)
	pdf.SetX(pageLeft)
	pdf.CellFormat(100, 6, fmt.Sprintf("Reporte de %s", summary.Month), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	g.drawTable(pdf, pageLeft,
		[]string{"Usuario", "Baños", "Cortes", "Cepillados"},
		[]float64{60, 30, 30, 30},
		[]string{"L", "C", "C", "C"},
		workRowsFor(append(summary.Work, summary.WorkTotals)))
	pdf.Ln(tableGap)

	summaryRows := [][]string{
		{"Total mascotas", fmt.Sprintf("%d Mascotas", summary.VisitCount)},
		{"Precio total registrado", fmt.Sprintf("%s Bs.", summary.TotalPrice.StringFixed(2))},
	}
	summaryRows = append(summaryRows, financialRows(summary.Financial)...)
	g.drawTable(pdf, 180, nil,
		[]float64{60, 50},
		[]string{"L", "C"},
		summaryRows)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error generating monthly report PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderRatings dibuja el reporte de calificaciones en vertical
func (g *ReportGenerator) RenderRatings(summary RatingsSummary, salonName string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	hasLogo := g.registerLogo(pdf)
	pageWidth, _ := pdf.GetPageSize()

	pdf.AddPage()
	g.drawHeader(pdf, salonName, hasLogo, pageWidth)

	pdf.SetFont("Arial", "", 12)
	pdf.SetX(pageLeft)
	pdf.CellFormat(100, 6, "Reporte de Calificaciones", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	rows := make([][]string, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		rows = append(rows, []string{
			fmt.Sprintf("%d", row.Index),
			row.PetName,
			row.OwnerName,
			row.Rating,
			row.Date,
		})
	}
	g.drawTable(pdf, pageLeft,
		[]string{"N°", "Mascota", "Dueño", "Calificación", "Fecha"},
		[]float64{10, 50, 50, 40, 30},
		[]string{"C", "L", "L", "L", "C"},
		rows)
	pdf.Ln(tableGap)

	pdf.SetFont("Arial", "", 11)
	pdf.SetX(pageLeft)
	pdf.CellFormat(100, 6, "Resumen de Calificaciones:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{
		fmt.Sprintf("Total de Calificaciones: %d", summary.Total),
		fmt.Sprintf("Calificaciones Excelente: %d", summary.Great),
		fmt.Sprintf("Calificaciones Regular: %d", summary.Medium),
		fmt.Sprintf("Calificaciones Mala: %d", summary.Bad),
	} {
		pdf.SetX(pageLeft)
		pdf.CellFormat(100, 6, line, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error generating ratings report PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func workRowsFor(rows []WorkRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{
			row.Name,
			fmt.Sprintf("%d", row.Bathed),
			fmt.Sprintf("%d", row.Choped),
			fmt.Sprintf("%d", row.Brushed),
		})
	}
	return out
}

func financialRows(f FinancialSummary) [][]string {
	return [][]string{
		{"Total Efectivo", fmt.Sprintf("%s Bs.", f.Cash)},
		{"Total QR", fmt.Sprintf("%s Bs.", f.QR)},
		{"Subtotal", fmt.Sprintf("%s Bs.", f.Subtotal)},
		{"Gastos", fmt.Sprintf("%s Bs.", f.Expenses)},
		{"Total", fmt.Sprintf("%s Bs.", f.Net)},
	}
}
