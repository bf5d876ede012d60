package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/service"

	"go.uber.org/zap"
)

func newLedger(store *memStore, pub *recordingPublisher) *service.Ledger {
	return service.NewLedger(store, store, pub, "financio_db", zap.NewNop())
}

func validInput() domain.TransactionInput {
	return domain.TransactionInput{
		Type:        domain.KindExpense,
		Amount:      1500000,
		CategoryID:  "cat-rent",
		Description: "Office rent",
		Date:        time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreateTransaction_PublishesEvent(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	ledger := newLedger(store, pub)

	txn, err := ledger.CreateTransaction(context.Background(), "u1", validInput())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if txn.ID == "" || txn.UserID != "u1" {
		t.Fatalf("unexpected transaction %+v", txn)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Collection() != domain.CollectionTransactions || !ev.HasAction(domain.ActionCreate) {
		t.Errorf("unexpected event %v", ev.Events)
	}
	if ev.OwnerID() != "u1" {
		t.Errorf("expected owner u1, got %q", ev.OwnerID())
	}
}

func TestCreateTransaction_RejectsInvalid(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	ledger := newLedger(store, pub)

	in := validInput()
	in.Amount = -5
	_, err := ledger.CreateTransaction(context.Background(), "u1", in)

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) || verr.Field != "amount" {
		t.Fatalf("expected amount validation error, got %v", err)
	}
	if len(store.txns) != 0 || len(pub.events) != 0 {
		t.Error("invalid input must not be stored or announced")
	}
}

func TestUpdateTransaction_KindIsFixed(t *testing.T) {
	store := newMemStore()
	ledger := newLedger(store, &recordingPublisher{})

	txn, _ := ledger.CreateTransaction(context.Background(), "u1", validInput())
	income := domain.KindIncome
	_, err := ledger.UpdateTransaction(context.Background(), "u1", txn.ID, domain.TransactionPatch{Type: &income})

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) || verr.Field != "type" {
		t.Fatalf("expected type validation error, got %v", err)
	}
}

func TestUpdateTransaction_OtherOwner(t *testing.T) {
	store := newMemStore()
	ledger := newLedger(store, &recordingPublisher{})

	txn, _ := ledger.CreateTransaction(context.Background(), "u1", validInput())
	amount := 10.0
	_, err := ledger.UpdateTransaction(context.Background(), "u2", txn.ID, domain.TransactionPatch{Amount: &amount})

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateCategory_KindChangeConflict(t *testing.T) {
	store := newMemStore()
	ledger := newLedger(store, &recordingPublisher{})
	ctx := context.Background()

	cat, err := ledger.CreateCategory(ctx, "u1", domain.CategoryInput{Name: "Rent", Type: domain.KindExpense, Color: "red", Icon: "Home"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	in := validInput()
	in.CategoryID = cat.ID
	if _, err := ledger.CreateTransaction(ctx, "u1", in); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	income := domain.KindIncome
	_, err = ledger.UpdateCategory(ctx, "u1", cat.ID, domain.CategoryPatch{Type: &income})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	name := "Office rent"
	updated, err := ledger.UpdateCategory(ctx, "u1", cat.ID, domain.CategoryPatch{Name: &name})
	if err != nil {
		t.Fatalf("rename should succeed, got %v", err)
	}
	if updated.Name != name || updated.Type != domain.KindExpense {
		t.Errorf("unexpected category %+v", updated)
	}
}

func TestUpdateCategory_KindChangeWhenUnused(t *testing.T) {
	store := newMemStore()
	ledger := newLedger(store, &recordingPublisher{})
	ctx := context.Background()

	cat, _ := ledger.CreateCategory(ctx, "u1", domain.CategoryInput{Name: "Misc", Type: domain.KindExpense, Color: "#6b7280", Icon: "Package"})
	income := domain.KindIncome
	updated, err := ledger.UpdateCategory(ctx, "u1", cat.ID, domain.CategoryPatch{Type: &income})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Type != domain.KindIncome {
		t.Errorf("expected income, got %s", updated.Type)
	}
}

func TestListCategories_FiltersByKind(t *testing.T) {
	store := newMemStore()
	ledger := newLedger(store, &recordingPublisher{})
	ctx := context.Background()

	if _, _, err := ledger.SeedDefaults(ctx, "u1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	income, err := ledger.ListCategories(ctx, "u1", domain.KindIncome)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, c := range income {
		if c.Type != domain.KindIncome {
			t.Errorf("unexpected %s category %q", c.Type, c.Name)
		}
	}
	all, _ := ledger.ListCategories(ctx, "u1", "")
	if len(all) != len(domain.DefaultCategories) {
		t.Errorf("expected %d categories, got %d", len(domain.DefaultCategories), len(all))
	}
}

func TestSeedDefaults_OnlyOnce(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	ledger := newLedger(store, pub)
	ctx := context.Background()

	cats, created, err := ledger.SeedDefaults(ctx, "u1")
	if err != nil || !created {
		t.Fatalf("expected seeding, got created=%v err=%v", created, err)
	}
	if len(cats) != len(domain.DefaultCategories) {
		t.Fatalf("expected %d categories, got %d", len(domain.DefaultCategories), len(cats))
	}

	again, created, err := ledger.SeedDefaults(ctx, "u1")
	if err != nil || created {
		t.Fatalf("second seed must be a no-op, got created=%v err=%v", created, err)
	}
	if len(again) != len(cats) {
		t.Errorf("expected existing %d categories, got %d", len(cats), len(again))
	}
	if len(pub.events) != len(cats) {
		t.Errorf("expected %d events, got %d", len(cats), len(pub.events))
	}
}

func TestDeleteCategory_KeepsTransactions(t *testing.T) {
	store := newMemStore()
	ledger := newLedger(store, &recordingPublisher{})
	ctx := context.Background()

	cat, _ := ledger.CreateCategory(ctx, "u1", domain.CategoryInput{Name: "Rent", Type: domain.KindExpense, Color: "red", Icon: "Home"})
	in := validInput()
	in.CategoryID = cat.ID
	_, _ = ledger.CreateTransaction(ctx, "u1", in)

	if err := ledger.DeleteCategory(ctx, "u1", cat.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	txns, _ := ledger.ListTransactions(ctx, "u1", domain.TransactionFilter{})
	if len(txns) != 1 {
		t.Errorf("expected transaction to survive, got %d", len(txns))
	}
}
