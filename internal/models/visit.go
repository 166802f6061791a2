package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VisitState representa el estado del ciclo de vida de una visita.
// El campo es texto libre en el árbol persistido; estos son los valores
// que usa la aplicación.
type VisitState string

const (
	VisitStatePending   VisitState = "PENDIENTE"
	VisitStateDelivered VisitState = "ENTREGADO"
)

// Rating representa la calificación dejada por el dueño de la mascota
type Rating string

const (
	RatingGreat  Rating = "great"
	RatingMedium Rating = "medium"
	RatingBad    Rating = "bad"
)

// IsValid retorna true si la calificación es una de las conocidas
func (r Rating) IsValid() bool {
	return r == RatingGreat || r == RatingMedium || r == RatingBad
}

// PaymentMethod representa el método de pago de una visita
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "CASH"
	PaymentMethodQR   PaymentMethod = "QR"
)

// PaymentType representa si el pago es un adelanto o el saldo
type PaymentType string

const (
	PaymentTypeAdvance PaymentType = "advance"
	PaymentTypeBalance PaymentType = "balance"
)

// ServiceName identifica cada uno de los trabajos de peluquería de una visita
type ServiceName string

const (
	ServiceChoped  ServiceName = "choped"
	ServiceBathed  ServiceName = "bathed"
	ServiceBrushed ServiceName = "brushed"
)

// IsValid retorna true si el nombre corresponde a un servicio conocido
func (s ServiceName) IsValid() bool {
	return s == ServiceChoped || s == ServiceBathed || s == ServiceBrushed
}

// ServiceMark registra que un trabajo fue realizado, por quién y cuándo.
// La ausencia del marcador significa "todavía no se hizo".
type ServiceMark struct {
	Date    time.Time `json:"date"`
	UserUID string    `json:"user_uid"`
}

// Consent representa un consentimiento firmado: un blob opaco más la URL
// del documento subido al storage, si existe
type Consent struct {
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

// ConsentNode identifica cuál de los dos consentimientos de la visita
type ConsentNode string

const (
	ConsentPrimary   ConsentNode = "primaryConsent"
	ConsentSecondary ConsentNode = "secondaryConsent"
)

// IsValid retorna true si el nodo de consentimiento es conocido
func (c ConsentNode) IsValid() bool {
	return c == ConsentPrimary || c == ConsentSecondary
}

// Payment representa un pago registrado bajo una visita
type Payment struct {
	UID     string          `json:"uid"`
	UserUID string          `json:"user_uid"`
	Method  PaymentMethod   `json:"method"`
	Amount  decimal.Decimal `json:"amount"`
	Date    time.Time       `json:"date"`
	Type    PaymentType     `json:"type"`
}

// PaymentCreate representa un pago en borrador, todavía sin clave asignada
type PaymentCreate struct {
	UserUID string          `json:"user_uid"`
	Method  PaymentMethod   `json:"method"`
	Amount  decimal.Decimal `json:"amount"`
	Date    time.Time       `json:"date"`
	Type    PaymentType     `json:"type"`
}

// Visit representa una visita de peluquería (el agregado raíz del sistema)
type Visit struct {
	ID             string       `json:"id"`
	PetName        string       `json:"pet_name"`
	OwnerName      string       `json:"owner_name"`
	CutType        string       `json:"cut_type"`
	Color          string       `json:"color"`
	Race           string       `json:"race"`
	PhoneNumber    string       `json:"phone_number"`
	Date           time.Time    `json:"date"`
	DateModified   time.Time    `json:"date_modified"`
	Price          decimal.Decimal `json:"price"`
	State          string       `json:"state"`
	Observation    string       `json:"observation,omitempty"`
	CreatedByUID   string       `json:"created_by_uid"`
	DeliveredByUID string       `json:"delivered_by_uid,omitempty"`
	HourOfDelivery *time.Time   `json:"hour_of_delivery,omitempty"`
	Feedback       Rating       `json:"feedback,omitempty"`

	Choped  *ServiceMark `json:"choped,omitempty"`
	Bathed  *ServiceMark `json:"bathed,omitempty"`
	Brushed *ServiceMark `json:"brushed,omitempty"`

	PrimaryConsent   *Consent `json:"primary_consent,omitempty"`
	SecondaryConsent *Consent `json:"secondary_consent,omitempty"`

	Payments []Payment `json:"payments,omitempty"`
}

// ServiceMarkFor retorna el marcador del servicio pedido, o nil si no existe
func (v *Visit) ServiceMarkFor(name ServiceName) *ServiceMark {
	switch name {
	case ServiceChoped:
		return v.Choped
	case ServiceBathed:
		return v.Bathed
	case ServiceBrushed:
		return v.Brushed
	}
	return nil
}

// VisitCreate representa una visita en borrador lista para persistir.
// Los pagos todavía no tienen clave; se les asigna una al crear.
type VisitCreate struct {
	PetName        string          `json:"pet_name" binding:"required"`
	OwnerName      string          `json:"owner_name" binding:"required"`
	CutType        string          `json:"cut_type"`
	Color          string          `json:"color"`
	Race           string          `json:"race"`
	PhoneNumber    string          `json:"phone_number"`
	Date           time.Time       `json:"date" binding:"required"`
	Price          decimal.Decimal `json:"price"`
	State          string          `json:"state"`
	Observation    string          `json:"observation"`
	CreatedByUID   string          `json:"created_by_uid"`
	HourOfDelivery *time.Time      `json:"hour_of_delivery"`
	Feedback       Rating          `json:"feedback"`
	Payments       []PaymentCreate `json:"payments"`
}

// VisitEdit representa los campos descriptivos editables de una visita.
// Los pagos y createdByUid son inmutables después de la creación.
type VisitEdit struct {
	PetName        string          `json:"pet_name"`
	OwnerName      string          `json:"owner_name"`
	CutType        string          `json:"cut_type"`
	Color          string          `json:"color"`
	Race           string          `json:"race"`
	PhoneNumber    string          `json:"phone_number"`
	Date           time.Time       `json:"date"`
	Price          decimal.Decimal `json:"price"`
	State          string          `json:"state"`
	Observation    string          `json:"observation"`
	HourOfDelivery *time.Time      `json:"hour_of_delivery"`
	Feedback       Rating          `json:"feedback"`
}

// DateRange representa el rango [from.inicioDelDía, to.finDelDía) de una consulta
type DateRange struct {
	From time.Time `json:"from" form:"from" time_format:"2006-01-02"`
	To   time.Time `json:"to" form:"to" time_format:"2006-01-02"`
}
