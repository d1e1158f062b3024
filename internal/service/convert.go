package service

import (
	"github.com/mmynk/tabkeeper/internal/calculator"
	"github.com/mmynk/tabkeeper/internal/ledger"
	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPITransaction(tx *models.Transaction) *api.Transaction {
	out := &api.Transaction{
		ID:        tx.ID,
		ItemID:    tx.ItemID,
		ItemName:  tx.ItemName,
		Price:     tx.Price,
		Quantity:  tx.Quantity,
		Total:     tx.Total,
		Paid:      tx.Paid,
		Remaining: calculator.Remaining(tx),
		Status:    string(tx.Status),
		Date:      tx.Date,
		Note:      tx.Note,
		CreatedAt: tx.CreatedAt,
	}
	if !tx.LastPaymentDate.IsZero() {
		last := tx.LastPaymentDate
		out.LastPaymentDate = &last
	}
	return out
}

func toAPITransactions(txs []*models.Transaction) []*api.Transaction {
	out := make([]*api.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toAPITransaction(tx))
	}
	return out
}

func toAPIPayment(p *models.Payment) *api.Payment {
	return &api.Payment{
		ID:            p.ID,
		TransactionID: p.TransactionID,
		ItemName:      p.ItemName,
		Amount:        p.Amount,
		Date:          p.Date,
		Note:          p.Note,
		CreatedAt:     p.CreatedAt,
	}
}

func toAPIItem(item *models.CatalogItem) *api.Item {
	return &api.Item{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		CreatedAt:   item.CreatedAt,
	}
}

func toAPIHistory(entries []models.HistoryEntry) []*api.HistoryEntry {
	out := make([]*api.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, &api.HistoryEntry{
			Kind:          string(e.Kind),
			ID:            e.ID,
			TransactionID: e.TransactionID,
			Date:          e.Date,
			ItemName:      e.ItemName,
			Amount:        e.Amount,
			Quantity:      e.Quantity,
			Status:        string(e.Status),
			Note:          e.Note,
			Editable:      e.Editable,
		})
	}
	return out
}

func toPaymentRequest(req *api.ApplyPaymentRequest) ledger.PaymentRequest {
	return ledger.PaymentRequest{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		PayRemaining:  req.PayRemaining,
		Date:          req.Date,
		Note:          req.Note,
	}
}
