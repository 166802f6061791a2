package database

import (
	"context"
	"fmt"
	"time"

	"github.com/khatanna/salon-service/internal/models"
	"github.com/sirupsen/logrus"
)

// BillRepository maneja las operaciones del árbol persistido para los gastos.
// Los gastos viven bajo bills/{tenantId}/{billId}, o bajo
// bills/{tenantId}/{userId}/{billId} cuando se registran por usuario.
type BillRepository struct {
	store  *TreeStore
	logger *logrus.Logger
}

// NewBillRepository crea una nueva instancia del repositorio
func NewBillRepository(store *TreeStore, logger *logrus.Logger) *BillRepository {
	return &BillRepository{
		store:  store,
		logger: logger,
	}
}

func billsRoot(tenantID, userID string) string {
	if userID == "" {
		return "bills/" + tenantID
	}
	return "bills/" + tenantID + "/" + userID
}

// GetBills retorna los gastos del tenant (opcionalmente de un solo usuario)
// cuya fecha cae en [from.inicioDelDía, to.finDelDía), de más reciente a más
// antiguo
func (r *BillRepository) GetBills(ctx context.Context, tenantID, userID string, rng models.DateRange) ([]models.Bill, error) {
	startAt := FormatWireTime(startOfDay(rng.From))
	endBefore := FormatWireTime(startOfDay(rng.To).AddDate(0, 0, 1))

	children, err := r.store.QueryRange(ctx, billsRoot(tenantID, userID), "date", startAt, endBefore)
	if err != nil {
		return nil, fmt.Errorf("error querying bills: %w", err)
	}

	bills := make([]models.Bill, 0, len(children))
	for _, child := range children {
		bill, err := billFromNode(child.Key, child.Node)
		if err != nil {
			r.logger.WithError(err).WithField("bill_id", child.Key).Warn("Skipping malformed bill record")
			continue
		}
		bills = append(bills, *bill)
	}

	for i, j := 0, len(bills)-1; i < j; i, j = i+1, j-1 {
		bills[i], bills[j] = bills[j], bills[i]
	}
	return bills, nil
}

// CreateBill registra un gasto nuevo
func (r *BillRepository) CreateBill(ctx context.Context, tenantID string, create *models.BillCreate) error {
	if create.Amount.IsNegative() {
		return fmt.Errorf("bill amount must not be negative")
	}

	date := create.Date
	if date.IsZero() {
		date = time.Now()
	}

	billID := r.store.NewKey()
	node := Node{
		"userUid": create.UserUID,
		"concept": create.Concept,
		"amount":  create.Amount.String(),
		"date":    FormatWireTime(date),
	}

	if err := r.store.Set(ctx, billsRoot(tenantID, "")+"/"+billID, node); err != nil {
		return fmt.Errorf("error creating bill: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"bill_id":   billID,
		"concept":   create.Concept,
	}).Info("Bill created")
	return nil
}

func billFromNode(billID string, node Node) (*models.Bill, error) {
	date, err := ParseWireTime(node["date"])
	if err != nil {
		return nil, fmt.Errorf("bill %s: invalid date %q: %w", billID, node["date"], err)
	}

	return &models.Bill{
		ID:      billID,
		UserUID: node["userUid"],
		Concept: node["concept"],
		Amount:  parseAmount(node["amount"]),
		Date:    date,
	}, nil
}
