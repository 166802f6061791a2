package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/khatanna/salon-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// VisitRepository maneja las operaciones del árbol persistido para Visit.
// Las visitas viven bajo visits/{tenantId}/{visitId}, con los pagos anidados
// bajo payments/{paymentId} dentro de cada visita.
type VisitRepository struct {
	store  *TreeStore
	logger *logrus.Logger
}

// NewVisitRepository crea una nueva instancia del repositorio
func NewVisitRepository(store *TreeStore, logger *logrus.Logger) *VisitRepository {
	return &VisitRepository{
		store:  store,
		logger: logger,
	}
}

func visitsRoot(tenantID string) string {
	return "visits/" + tenantID
}

func visitPath(tenantID, visitID string) string {
	return visitsRoot(tenantID) + "/" + visitID
}

// GetVisits retorna las visitas del tenant cuya fecha cae en
// [from.inicioDelDía, to.finDelDía), ordenadas de más reciente a más antigua
func (r *VisitRepository) GetVisits(ctx context.Context, tenantID string, rng models.DateRange) ([]models.Visit, error) {
	startAt := FormatWireTime(startOfDay(rng.From))
	endBefore := FormatWireTime(startOfDay(rng.To).AddDate(0, 0, 1))

	children, err := r.store.QueryRange(ctx, visitsRoot(tenantID), "date", startAt, endBefore)
	if err != nil {
		return nil, fmt.Errorf("error querying visits: %w", err)
	}

	visits := make([]models.Visit, 0, len(children))
	for _, child := range children {
		visit, err := visitFromNode(child.Key, child.Node)
		if err != nil {
			r.logger.WithError(err).WithField("visit_id", child.Key).Warn("Skipping malformed visit record")
			continue
		}
		visits = append(visits, *visit)
	}

	// el índice entrega orden ascendente; el llamador espera lo contrario
	for i, j := 0, len(visits)-1; i < j; i, j = i+1, j-1 {
		visits[i], visits[j] = visits[j], visits[i]
	}
	return visits, nil
}

// GetVisitByID obtiene una visita por id. Retorna (nil, nil) si no existe.
func (r *VisitRepository) GetVisitByID(ctx context.Context, tenantID, visitID string) (*models.Visit, error) {
	node, err := r.store.Get(ctx, visitPath(tenantID, visitID))
	if err != nil {
		return nil, fmt.Errorf("error reading visit: %w", err)
	}
	if node == nil {
		return nil, nil
	}
	return visitFromNode(visitID, node)
}

// CreateVisit reserva una clave nueva, asigna claves a cada pago del borrador
// y escribe el registro completo en una única escritura combinada: la visita
// y sus pagos se vuelven visibles atómicamente. Una caída antes del commit
// deja a lo sumo una clave huérfana sin referencias, nunca un registro parcial.
func (r *VisitRepository) CreateVisit(ctx context.Context, tenantID string, create *models.VisitCreate) error {
	if create.Price.IsNegative() {
		return fmt.Errorf("visit price must not be negative")
	}
	for _, payment := range create.Payments {
		if payment.Amount.IsNegative() {
			return fmt.Errorf("payment amount must not be negative")
		}
	}

	visitID := r.store.NewKey()
	node := visitCreateToNode(create, time.Now())
	for _, payment := range create.Payments {
		paymentID := r.store.NewKey()
		writePayment(node, paymentID, payment)
	}

	if err := r.store.MultiSet(ctx, map[string]Node{visitPath(tenantID, visitID): node}); err != nil {
		return fmt.Errorf("error creating visit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"visit_id":  visitID,
		"payments":  len(create.Payments),
	}).Info("Visit created")
	return nil
}

// EditVisit actualiza los campos descriptivos de una visita. Los pagos y
// createdByUid son inmutables después de la creación; dateModified se
// recalcula en cada edición.
func (r *VisitRepository) EditVisit(ctx context.Context, tenantID, visitID string, edit *models.VisitEdit) error {
	if edit.Price.IsNegative() {
		return fmt.Errorf("visit price must not be negative")
	}

	fields := map[string]*string{
		"petName":      ptr(edit.PetName),
		"ownerName":    ptr(edit.OwnerName),
		"cutType":      ptr(edit.CutType),
		"color":        ptr(edit.Color),
		"race":         ptr(edit.Race),
		"phoneNumber":  ptr(edit.PhoneNumber),
		"date":         ptr(FormatWireTime(edit.Date)),
		"dateModified": ptr(FormatWireTime(time.Now())),
		"price":        ptr(edit.Price.String()),
		"state":        ptr(edit.State),
		"observation":  optional(edit.Observation),
		"feedback":     optional(string(edit.Feedback)),
	}
	if edit.HourOfDelivery != nil {
		fields["hourOfDelivery"] = ptr(FormatWireTime(*edit.HourOfDelivery))
	} else {
		fields["hourOfDelivery"] = nil
	}

	if err := r.store.Update(ctx, visitPath(tenantID, visitID), fields); err != nil {
		return fmt.Errorf("error editing visit: %w", err)
	}
	return nil
}

// DeleteVisit elimina el subárbol de la visita. Destructivo e irreversible.
func (r *VisitRepository) DeleteVisit(ctx context.Context, tenantID, visitID string) error {
	if err := r.store.Delete(ctx, visitPath(tenantID, visitID)); err != nil {
		return fmt.Errorf("error deleting visit: %w", err)
	}
	return nil
}

// ChangeState escribe el estado del ciclo de vida de la visita
func (r *VisitRepository) ChangeState(ctx context.Context, tenantID, visitID, state string) error {
	if err := r.store.Update(ctx, visitPath(tenantID, visitID), map[string]*string{
		"state": ptr(state),
	}); err != nil {
		return fmt.Errorf("error changing visit state: %w", err)
	}
	return nil
}

// RateVisit escribe la calificación dejada por el dueño
func (r *VisitRepository) RateVisit(ctx context.Context, tenantID, visitID string, rating models.Rating) error {
	if !rating.IsValid() {
		return fmt.Errorf("invalid rating: %s", rating)
	}
	if err := r.store.Update(ctx, visitPath(tenantID, visitID), map[string]*string{
		"feedback": ptr(string(rating)),
	}); err != nil {
		return fmt.Errorf("error rating visit: %w", err)
	}
	return nil
}

// SetConsent escribe el blob opaco de un nodo de consentimiento
func (r *VisitRepository) SetConsent(ctx context.Context, tenantID, visitID string, node models.ConsentNode, data string) error {
	if !node.IsValid() {
		return fmt.Errorf("invalid consent node: %s", node)
	}
	if err := r.store.Update(ctx, visitPath(tenantID, visitID), map[string]*string{
		string(node) + "/data": ptr(data),
	}); err != nil {
		return fmt.Errorf("error setting consent: %w", err)
	}
	return nil
}

// SetURLConsent escribe la URL del documento subido de un nodo de consentimiento
func (r *VisitRepository) SetURLConsent(ctx context.Context, tenantID, visitID, url string, node models.ConsentNode) error {
	if !node.IsValid() {
		return fmt.Errorf("invalid consent node: %s", node)
	}
	if err := r.store.Update(ctx, visitPath(tenantID, visitID), map[string]*string{
		string(node) + "/url": ptr(url),
	}); err != nil {
		return fmt.Errorf("error setting consent url: %w", err)
	}
	return nil
}

// ToggleService invierte el marcador de un servicio: si existe lo borra, si
// no existe lo escribe con la hora actual y el uid de quien lo realizó.
// Es lectura-luego-escritura: dos togglers concurrentes sobre el mismo
// marcador pueden pisarse; se acepta la semántica del almacén, sin transacción.
func (r *VisitRepository) ToggleService(ctx context.Context, tenantID, visitID, userID string, name models.ServiceName) error {
	if !name.IsValid() {
		return fmt.Errorf("invalid service name: %s", name)
	}

	path := visitPath(tenantID, visitID)
	node, err := r.store.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("error reading visit for toggle: %w", err)
	}
	if node == nil {
		return fmt.Errorf("visit %s: %w", visitID, models.ErrNotFound)
	}

	dateField := string(name) + "/date"
	userField := string(name) + "/userUid"

	if _, done := node[dateField]; done {
		err = r.store.Update(ctx, path, map[string]*string{
			dateField: nil,
			userField: nil,
		})
	} else {
		err = r.store.Update(ctx, path, map[string]*string{
			dateField: ptr(FormatWireTime(time.Now())),
			userField: ptr(userID),
		})
	}
	if err != nil {
		return fmt.Errorf("error toggling service %s: %w", name, err)
	}
	return nil
}

func ptr(s string) *string {
	return &s
}

// optional retorna nil para cadenas vacías: el campo se elimina del nodo
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// visitCreateToNode serializa un borrador de visita a su forma persistida.
// Todos los campos monetarios y de fecha se guardan como texto.
func visitCreateToNode(create *models.VisitCreate, now time.Time) Node {
	state := create.State
	if state == "" {
		state = string(models.VisitStatePending)
	}

	node := Node{
		"petName":      create.PetName,
		"ownerName":    create.OwnerName,
		"cutType":      create.CutType,
		"color":        create.Color,
		"race":         create.Race,
		"phoneNumber":  create.PhoneNumber,
		"date":         FormatWireTime(create.Date),
		"dateModified": FormatWireTime(now),
		"price":        create.Price.String(),
		"state":        state,
		"createdByUid": create.CreatedByUID,
	}
	if create.Observation != "" {
		node["observation"] = create.Observation
	}
	if create.Feedback != "" {
		node["feedback"] = string(create.Feedback)
	}
	if create.HourOfDelivery != nil {
		node["hourOfDelivery"] = FormatWireTime(*create.HourOfDelivery)
	}
	return node
}

func writePayment(node Node, paymentID string, payment models.PaymentCreate) {
	prefix := "payments/" + paymentID + "/"
	node[prefix+"userUid"] = payment.UserUID
	node[prefix+"method"] = string(payment.Method)
	node[prefix+"amount"] = payment.Amount.String()
	node[prefix+"date"] = FormatWireTime(payment.Date)
	node[prefix+"type"] = string(payment.Type)
}

// visitFromNode deserializa la forma persistida a un agregado Visit,
// validando números en texto y fechas explícitamente
func visitFromNode(visitID string, node Node) (*models.Visit, error) {
	date, err := ParseWireTime(node["date"])
	if err != nil {
		return nil, fmt.Errorf("visit %s: invalid date %q: %w", visitID, node["date"], err)
	}

	visit := &models.Visit{
		ID:             visitID,
		PetName:        node["petName"],
		OwnerName:      node["ownerName"],
		CutType:        node["cutType"],
		Color:          node["color"],
		Race:           node["race"],
		PhoneNumber:    node["phoneNumber"],
		Date:           date,
		Price:          parseAmount(node["price"]),
		State:          node["state"],
		Observation:    node["observation"],
		CreatedByUID:   node["createdByUid"],
		DeliveredByUID: node["deliveredByUid"],
		Feedback:       models.Rating(node["feedback"]),
	}

	if modified, err := ParseWireTime(node["dateModified"]); err == nil {
		visit.DateModified = modified
	}
	if raw, ok := node["hourOfDelivery"]; ok {
		if hour, err := ParseWireTime(raw); err == nil {
			visit.HourOfDelivery = &hour
		}
	}

	visit.Choped = serviceMarkFromNode(node, models.ServiceChoped)
	visit.Bathed = serviceMarkFromNode(node, models.ServiceBathed)
	visit.Brushed = serviceMarkFromNode(node, models.ServiceBrushed)
	visit.PrimaryConsent = consentFromNode(node, models.ConsentPrimary)
	visit.SecondaryConsent = consentFromNode(node, models.ConsentSecondary)
	visit.Payments = paymentsFromNode(node)

	return visit, nil
}

func serviceMarkFromNode(node Node, name models.ServiceName) *models.ServiceMark {
	raw, ok := node[string(name)+"/date"]
	if !ok {
		return nil
	}
	mark := &models.ServiceMark{UserUID: node[string(name)+"/userUid"]}
	if date, err := ParseWireTime(raw); err == nil {
		mark.Date = date
	}
	return mark
}

func consentFromNode(node Node, consent models.ConsentNode) *models.Consent {
	data, hasData := node[string(consent)+"/data"]
	url, hasURL := node[string(consent)+"/url"]
	if !hasData && !hasURL {
		return nil
	}
	return &models.Consent{Data: data, URL: url}
}

func paymentsFromNode(node Node) []models.Payment {
	byID := make(map[string]*models.Payment)
	for field, value := range node {
		if !strings.HasPrefix(field, "payments/") {
			continue
		}
		rest := strings.TrimPrefix(field, "payments/")
		i := strings.Index(rest, "/")
		if i < 0 {
			continue
		}
		paymentID, attr := rest[:i], rest[i+1:]

		payment, ok := byID[paymentID]
		if !ok {
			payment = &models.Payment{UID: paymentID}
			byID[paymentID] = payment
		}
		switch attr {
		case "userUid":
			payment.UserUID = value
		case "method":
			payment.Method = models.PaymentMethod(value)
		case "amount":
			payment.Amount = parseAmount(value)
		case "type":
			payment.Type = models.PaymentType(value)
		case "date":
			if date, err := ParseWireTime(value); err == nil {
				payment.Date = date
			}
		}
	}
	if len(byID) == 0 {
		return nil
	}

	payments := make([]models.Payment, 0, len(byID))
	for _, payment := range byID {
		payments = append(payments, *payment)
	}
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].Date.Equal(payments[j].Date) {
			return payments[i].UID < payments[j].UID
		}
		return payments[i].Date.Before(payments[j].Date)
	})
	return payments
}

// parseAmount valida un monto en texto; valores ilegibles cuentan como cero
func parseAmount(raw string) decimal.Decimal {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
