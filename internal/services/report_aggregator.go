package services

import (
	"sort"
	"time"

	"github.com/khatanna/salon-service/internal/models"
	"github.com/shopspring/decimal"
)

// dayFormat agrupa visitas y gastos por día calendario. La pertenencia a un
// día se decide por igualdad exacta de la cadena formateada, no por comparar
// fechas.
const dayFormat = "02/01/2006"

// Aggregator transforma visitas, usuarios y gastos ya leídos en las filas y
// totales de los reportes. No toca el almacén: es puro sobre sus entradas.
type Aggregator struct {
	afternoonStylistUID string
}

// NewAggregator crea una nueva instancia del agregador. afternoonStylistUID
// es la peluquera cuyos trabajos después de las 15:00 se cuentan aparte.
func NewAggregator(afternoonStylistUID string) *Aggregator {
	return &Aggregator{afternoonStylistUID: afternoonStylistUID}
}

// VisitRow es una fila de la tabla de visitas del reporte diario
type VisitRow struct {
	Index     int
	PetName   string
	Race      string
	Color     string
	OwnerName string
	ChopedBy  string
	BathedBy  string
	BrushedBy string
	Price     decimal.Decimal
	Cash      decimal.Decimal
	QR        decimal.Decimal
}

// BillRow es una fila de la tabla de gastos del día
type BillRow struct {
	UserName string
	Concept  string
	Amount   decimal.Decimal
	Time     string
}

// WorkRow cuenta los trabajos realizados por un miembro del personal
type WorkRow struct {
	Name    string
	Bathed  int
	Choped  int
	Brushed int
}

// FinancialSummary es el resumen financiero: neto = efectivo + QR - gastos
type FinancialSummary struct {
	Cash     decimal.Decimal
	QR       decimal.Decimal
	Subtotal decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
}

// DailyPage es una página del reporte diario: todas las tablas de un día
type DailyPage struct {
	Date       string
	Rows       []VisitRow
	TotalPrice decimal.Decimal
	TotalCash  decimal.Decimal
	TotalQR    decimal.Decimal

	Bills      []BillRow
	BillsTotal decimal.Decimal

	Work       []WorkRow
	WorkTotals WorkRow

	AfternoonStylistName string
	ChopedAfternoon      int
	BathedAfternoon      int

	Financial FinancialSummary
}

// MonthlySummary es el contenido del reporte mensual de una sola página
type MonthlySummary struct {
	Month      string
	Work       []WorkRow
	WorkTotals WorkRow
	VisitCount int
	TotalPrice decimal.Decimal
	Financial  FinancialSummary
}

// RatingRow es una fila del reporte de calificaciones
type RatingRow struct {
	Index     int
	PetName   string
	OwnerName string
	Rating    string
	Date      string
}

// RatingsSummary lista las visitas calificadas y los conteos por calificación
type RatingsSummary struct {
	Rows   []RatingRow
	Total  int
	Great  int
	Medium int
	Bad    int
}

// ratingLabels traduce la calificación persistida a su etiqueta visible
var ratingLabels = map[models.Rating]string{
	models.RatingGreat:  "Excelente",
	models.RatingMedium: "Regular",
	models.RatingBad:    "Mala",
}

// DailyPages agrupa las visitas por día calendario y arma una página por día
func (a *Aggregator) DailyPages(visits []models.Visit, users map[string]models.User, bills []models.Bill) []DailyPage {
	days, visitsByDay := groupByDay(visits, func(v models.Visit) time.Time { return v.Date })
	_, billsByDay := groupByDay(bills, func(b models.Bill) time.Time { return b.Date })

	pages := make([]DailyPage, 0, len(days))
	for _, day := range days {
		dayVisits := visitsByDay[day]
		dayBills := billsByDay[day]

		page := DailyPage{Date: day}

		for i, visit := range dayVisits {
			page.Rows = append(page.Rows, VisitRow{
				Index:     i + 1,
				PetName:   visit.PetName,
				Race:      visit.Race,
				Color:     visit.Color,
				OwnerName: visit.OwnerName,
				ChopedBy:  performerName(visit.Choped, users),
				BathedBy:  performerName(visit.Bathed, users),
				BrushedBy: performerName(visit.Brushed, users),
				Price:     visit.Price,
				Cash:      paymentTotal(visit.Payments, models.PaymentMethodCash),
				QR:        paymentTotal(visit.Payments, models.PaymentMethodQR),
			})
			page.TotalPrice = page.TotalPrice.Add(visit.Price)
		}
		page.TotalCash = cashTotal(dayVisits, models.PaymentMethodCash)
		page.TotalQR = cashTotal(dayVisits, models.PaymentMethodQR)

		for _, bill := range dayBills {
			page.Bills = append(page.Bills, BillRow{
				UserName: userName(bill.UserUID, users),
				Concept:  bill.Concept,
				Amount:   bill.Amount,
				Time:     bill.Date.Format("03:04PM"),
			})
			page.BillsTotal = page.BillsTotal.Add(bill.Amount)
		}

		page.Work, page.WorkTotals = workTable(dayVisits, users)

		page.AfternoonStylistName = userName(a.afternoonStylistUID, users)
		page.ChopedAfternoon = countAfternoon(dayVisits, a.afternoonStylistUID, func(v models.Visit) *models.ServiceMark { return v.Choped })
		page.BathedAfternoon = countAfternoon(dayVisits, a.afternoonStylistUID, func(v models.Visit) *models.ServiceMark { return v.Bathed })

		page.Financial = financialSummary(page.TotalCash, page.TotalQR, page.BillsTotal)

		pages = append(pages, page)
	}
	return pages
}

// Monthly arma el resumen del mes completo sobre todo el conjunto de entrada
func (a *Aggregator) Monthly(visits []models.Visit, users map[string]models.User, bills []models.Bill) MonthlySummary {
	summary := MonthlySummary{VisitCount: len(visits)}
	if len(visits) > 0 {
		summary.Month = visits[0].Date.Format("January")
	}

	summary.Work, summary.WorkTotals = workTable(visits, users)

	for _, visit := range visits {
		summary.TotalPrice = summary.TotalPrice.Add(visit.Price)
	}
	billsTotal := decimal.Zero
	for _, bill := range bills {
		billsTotal = billsTotal.Add(bill.Amount)
	}
	summary.Financial = financialSummary(
		cashTotal(visits, models.PaymentMethodCash),
		cashTotal(visits, models.PaymentMethodQR),
		billsTotal,
	)
	return summary
}

// Ratings lista las visitas con calificación (numeradas) y cuenta por valor.
// Las visitas sin calificación quedan fuera del listado y de los conteos.
func (a *Aggregator) Ratings(visits []models.Visit) RatingsSummary {
	var summary RatingsSummary
	for _, visit := range visits {
		label, known := ratingLabels[visit.Feedback]
		if !known {
			continue
		}
		summary.Rows = append(summary.Rows, RatingRow{
			Index:     len(summary.Rows) + 1,
			PetName:   visit.PetName,
			OwnerName: visit.OwnerName,
			Rating:    label,
			Date:      visit.Date.Format(dayFormat),
		})
		switch visit.Feedback {
		case models.RatingGreat:
			summary.Great++
		case models.RatingMedium:
			summary.Medium++
		case models.RatingBad:
			summary.Bad++
		}
	}
	summary.Total = len(summary.Rows)
	return summary
}

// groupByDay agrupa por la cadena de día formateada, preservando el orden de
// primera aparición de cada día
func groupByDay[T any](items []T, dateOf func(T) time.Time) ([]string, map[string][]T) {
	var days []string
	grouped := make(map[string][]T)
	for _, item := range items {
		day := dateOf(item).Format(dayFormat)
		if _, seen := grouped[day]; !seen {
			days = append(days, day)
		}
		grouped[day] = append(grouped[day], item)
	}
	return days, grouped
}

// workTable cuenta baños/cortes/cepillados por usuario. Los usuarios sin
// ningún trabajo en el conjunto no aparecen; se agrega una fila de totales.
func workTable(visits []models.Visit, users map[string]models.User) ([]WorkRow, WorkRow) {
	names := make([]models.User, 0, len(users))
	for _, user := range users {
		names = append(names, user)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Name < names[j].Name })

	var rows []WorkRow
	for _, user := range names {
		row := WorkRow{Name: user.Name}
		for _, visit := range visits {
			if visit.Bathed != nil && visit.Bathed.UserUID == user.ID {
				row.Bathed++
			}
			if visit.Choped != nil && visit.Choped.UserUID == user.ID {
				row.Choped++
			}
			if visit.Brushed != nil && visit.Brushed.UserUID == user.ID {
				row.Brushed++
			}
		}
		if row.Bathed == 0 && row.Choped == 0 && row.Brushed == 0 {
			continue
		}
		rows = append(rows, row)
	}

	totals := WorkRow{Name: "Total"}
	for _, visit := range visits {
		if visit.Bathed != nil {
			totals.Bathed++
		}
		if visit.Choped != nil {
			totals.Choped++
		}
		if visit.Brushed != nil {
			totals.Brushed++
		}
	}
	return rows, totals
}

// paymentTotal suma los pagos de una visita cuyo método coincide exactamente
func paymentTotal(payments []models.Payment, method models.PaymentMethod) decimal.Decimal {
	total := decimal.Zero
	for _, payment := range payments {
		if payment.Method == method {
			total = total.Add(payment.Amount)
		}
	}
	return total
}

func cashTotal(visits []models.Visit, method models.PaymentMethod) decimal.Decimal {
	total := decimal.Zero
	for _, visit := range visits {
		total = total.Add(paymentTotal(visit.Payments, method))
	}
	return total
}

// countAfternoon cuenta los trabajos del estilista hechos desde las 15:00
func countAfternoon(visits []models.Visit, stylistUID string, markOf func(models.Visit) *models.ServiceMark) int {
	count := 0
	for _, visit := range visits {
		mark := markOf(visit)
		if mark != nil && mark.UserUID == stylistUID && mark.Date.Hour() >= 15 {
			count++
		}
	}
	return count
}

func financialSummary(cash, qr, expenses decimal.Decimal) FinancialSummary {
	subtotal := cash.Add(qr)
	return FinancialSummary{
		Cash:     cash,
		QR:       qr,
		Subtotal: subtotal,
		Expenses: expenses,
		Net:      subtotal.Sub(expenses),
	}
}

func performerName(mark *models.ServiceMark, users map[string]models.User) string {
	if mark == nil {
		return "N/A"
	}
	return userName(mark.UserUID, users)
}

func userName(uid string, users map[string]models.User) string {
	if user, ok := users[uid]; ok && user.Name != "" {
		return user.Name
	}
	return "N/A"
}
