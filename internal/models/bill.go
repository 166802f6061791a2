package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill representa un gasto registrado por el personal del salón
type Bill struct {
	ID      string          `json:"id"`
	UserUID string          `json:"user_uid"`
	Concept string          `json:"concept"`
	Amount  decimal.Decimal `json:"amount"`
	Date    time.Time       `json:"date"`
}

// BillCreate representa un gasto todavía sin clave asignada
type BillCreate struct {
	UserUID string          `json:"user_uid"`
	Concept string          `json:"concept" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Date    time.Time       `json:"date"`
}
