package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/skillmarket/escrow-backend/internal/models"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, o *models.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockOrderRepo) UpdateState(ctx context.Context, o *models.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockOrderRepo) SubmitWork(ctx context.Context, o *models.Order, d *models.Deliverable) error {
	args := m.Called(ctx, o, d)
	return args.Error(0)
}

func (m *mockOrderRepo) AddEvidence(ctx context.Context, e *models.DisputeEvidence) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockOrderRepo) ListEvidence(ctx context.Context, orderID uuid.UUID) ([]models.DisputeEvidence, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]models.DisputeEvidence), args.Error(1)
}

func (m *mockOrderRepo) UpdateMilestone(ctx context.Context, o *models.Order, ms *models.Milestone, d *models.Deliverable) error {
	args := m.Called(ctx, o, ms, d)
	return args.Error(0)
}

func (m *mockOrderRepo) PayMilestone(ctx context.Context, o *models.Order, ms *models.Milestone) error {
	args := m.Called(ctx, o, ms)
	return args.Error(0)
}

func (m *mockOrderRepo) ResolveWithRefund(ctx context.Context, o *models.Order, ref *models.Refund, entry *models.AuditEntry) error {
	args := m.Called(ctx, o, ref, entry)
	return args.Error(0)
}

func (m *mockOrderRepo) ApplyWithAudit(ctx context.Context, o *models.Order, entry *models.AuditEntry) error {
	args := m.Called(ctx, o, entry)
	return args.Error(0)
}

func (m *mockOrderRepo) ListAutoReleasable(ctx context.Context, limit int) ([]models.Order, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Order), args.Error(1)
}

type mockRefundRepo struct {
	mock.Mock
}

func (m *mockRefundRepo) Create(ctx context.Context, ref *models.Refund) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *mockRefundRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Refund), args.Error(1)
}

func (m *mockRefundRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]models.Refund), args.Error(1)
}

func (m *mockRefundRepo) List(ctx context.Context, status string, limit, offset int) ([]models.Refund, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]models.Refund), args.Error(1)
}

func (m *mockRefundRepo) GetPendingByOrder(ctx context.Context, orderID uuid.UUID) (*models.Refund, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Refund), args.Error(1)
}

func (m *mockRefundRepo) HasPending(ctx context.Context, orderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRefundRepo) CompleteWithOrder(ctx context.Context, ref *models.Refund, o *models.Order, entry *models.AuditEntry) error {
	args := m.Called(ctx, ref, o, entry)
	return args.Error(0)
}

func (m *mockRefundRepo) Reject(ctx context.Context, ref *models.Refund, entry *models.AuditEntry) error {
	args := m.Called(ctx, ref, entry)
	return args.Error(0)
}

func (m *mockRefundRepo) ListUnreconciled(ctx context.Context) ([]models.Refund, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Refund), args.Error(1)
}

type mockAuditRepo struct {
	mock.Mock
}

func (m *mockAuditRepo) Add(ctx context.Context, entry *models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditRepo) ListByTarget(ctx context.Context, targetType string, targetID uuid.UUID) ([]models.AuditEntry, error) {
	args := m.Called(ctx, targetType, targetID)
	return args.Get(0).([]models.AuditEntry), args.Error(1)
}
