package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/skillmarket/escrow-backend/internal/escrow"
	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

const testWindow = 168 * time.Hour

func fundedOrder(clientID, freelancerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		GigID:         uuid.New(),
		ClientID:      clientID,
		FreelancerID:  freelancerID,
		Title:         "Логотип для кофейни",
		Price:         50000,
		Status:        string(escrow.OrderStatusPending),
		EscrowStatus:  string(escrow.EscrowStatusFunded),
		DisputeStatus: string(escrow.DisputeStatusNone),
		Version:       1,
	}
}

func TestEscrowService_CreateOrder_Success(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Order")).Return(nil)

	o, err := svc.CreateOrder(ctx, CreateOrderInput{
		GigID:        uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		Title:        "Логотип",
		Price:        50000,
		Milestones: []MilestoneInput{
			{Title: "Эскизы", Amount: 20000},
			{Title: "Финал", Amount: 30000},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, string(escrow.EscrowStatusFunded), o.EscrowStatus)
	assert.Equal(t, string(escrow.OrderStatusPending), o.Status)
	assert.Equal(t, string(escrow.DisputeStatusNone), o.DisputeStatus)
	assert.Len(t, o.Milestones, 2)
	repo.AssertExpectations(t)
}

func TestEscrowService_CreateOrder_Validation(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.CreateOrder(ctx, CreateOrderInput{ClientID: uuid.New(), FreelancerID: uuid.New(), Title: "", Price: 100})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateOrder(ctx, CreateOrderInput{ClientID: uuid.New(), FreelancerID: uuid.New(), Title: "x", Price: 0})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateOrder(ctx, CreateOrderInput{ClientID: userID, FreelancerID: userID, Title: "x", Price: 100})
	assert.True(t, apperror.IsValidation(err))

	// Сумма этапов выше цены заказа.
	_, err = svc.CreateOrder(ctx, CreateOrderInput{
		ClientID: uuid.New(), FreelancerID: uuid.New(), Title: "x", Price: 100,
		Milestones: []MilestoneInput{{Title: "a", Amount: 60}, {Title: "b", Amount: 60}},
	})
	assert.True(t, apperror.IsValidation(err))
}

type denyAllGate struct{}

func (denyAllGate) Check(ctx context.Context, clientID uuid.UUID, amount int64) error {
	return apperror.New(apperror.ErrCodeForbidden, "лимит превышен")
}

func TestEscrowService_CreateOrder_RiskRejected(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, denyAllGate{}, testWindow)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		ClientID: uuid.New(), FreelancerID: uuid.New(), Title: "x", Price: 100,
	})
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "Create")
}

func TestEscrowService_GetOrder_Forbidden(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	repo.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.GetOrder(ctx, o.ID, uuid.New(), models.RoleClient)
	assert.True(t, apperror.IsForbidden(err))

	// Админ видит любой заказ.
	got, err := svc.GetOrder(ctx, o.ID, uuid.New(), models.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestEscrowService_SubmitWork_Success(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	clientID, freelancerID := uuid.New(), uuid.New()
	o := fundedOrder(clientID, freelancerID)
	repo.On("GetByID", ctx, o.ID).Return(o, nil)
	repo.On("SubmitWork", ctx, o, mock.AnythingOfType("*models.Deliverable")).Return(nil)

	got, err := svc.SubmitWork(ctx, o.ID, freelancerID, 1, "https://cdn.example.com/p.png", "https://cdn.example.com/f.png")
	assert.NoError(t, err)
	assert.Equal(t, string(escrow.EscrowStatusWorkSubmitted), got.EscrowStatus)
	assert.Equal(t, string(escrow.OrderStatusInProgress), got.Status)
	assert.NotNil(t, got.WorkStartedAt)
	assert.NotNil(t, got.ClientReviewDeadline)
	repo.AssertExpectations(t)
}

func TestEscrowService_SubmitWork_NotFreelancer(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	repo.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.SubmitWork(ctx, o.ID, o.ClientID, 0, "https://a", "https://b")
	assert.True(t, apperror.IsForbidden(err))
}

func TestEscrowService_SubmitWork_VersionConflict(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.Version = 5
	repo.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.SubmitWork(ctx, o.ID, o.FreelancerID, 3, "https://a", "https://b")
	assert.ErrorIs(t, err, apperror.ErrVersionConflict)
}

func TestEscrowService_RequestRevision(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusWorkSubmitted)
	repo.On("GetByID", ctx, o.ID).Return(o, nil)
	repo.On("UpdateState", ctx, o).Return(nil)

	got, err := svc.RequestRevision(ctx, o.ID, o.ClientID, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, got.Revision)
	// Escrow остаётся в work_submitted: повторная сдача идёт самопереходом.
	assert.Equal(t, string(escrow.EscrowStatusWorkSubmitted), got.EscrowStatus)
}

func TestEscrowService_RequestRevision_WrongState(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	repo.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.RequestRevision(ctx, o.ID, o.ClientID, 0)
	assert.True(t, apperror.IsConflict(err))
}

func TestEscrowService_Approve_SetsAutoRelease(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusWorkSubmitted)
	repo.On("GetByID", ctx, o.ID).Return(o, nil)
	repo.On("UpdateState", ctx, o).Return(nil)

	got, err := svc.Approve(ctx, o.ID, o.ClientID, 0)
	assert.NoError(t, err)
	assert.Equal(t, string(escrow.EscrowStatusApproved), got.EscrowStatus)
	assert.NotNil(t, got.ApprovedAt)
	assert.NotNil(t, got.AutoReleaseDate)
	assert.WithinDuration(t, time.Now().Add(testWindow), *got.AutoReleaseDate, time.Minute)
}

func TestEscrowService_Release_Success(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusApproved)
	repo.On("GetByID", ctx, o.ID).Return(o, nil)
	repo.On("UpdateState", ctx, o).Return(nil)

	got, err := svc.Release(ctx, o.ID, o.ClientID, 0)
	assert.NoError(t, err)
	assert.Equal(t, string(escrow.EscrowStatusReleased), got.EscrowStatus)
	assert.Equal(t, string(escrow.OrderStatusCompleted), got.Status)
	assert.NotNil(t, got.ReleasedAt)
	assert.Nil(t, got.AutoReleaseDate)
}

func TestEscrowService_Release_Terminal(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusReleased)
	repo.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.Release(ctx, o.ID, o.ClientID, 0)
	assert.True(t, apperror.IsConflict(err))

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, string(escrow.EscrowStatusReleased), appErr.CurrentState)
}

func TestEscrowService_Release_BlockedByRefund(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusApproved)
	o.RefundAmount = 1000
	repo.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.Release(ctx, o.ID, o.ClientID, 0)
	assert.True(t, apperror.IsConflict(err))
	repo.AssertNotCalled(t, "UpdateState")
}

func TestEscrowService_OpenDispute(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusWorkSubmitted)
	repo.On("GetByID", ctx, o.ID).Return(o, nil)
	repo.On("UpdateState", ctx, o).Return(nil)

	got, err := svc.OpenDispute(ctx, o.ID, o.FreelancerID, 0, "работа не оплачивается", "детали")
	assert.NoError(t, err)
	assert.Equal(t, string(escrow.EscrowStatusDisputed), got.EscrowStatus)
	assert.Equal(t, string(escrow.OrderStatusDisputed), got.Status)
	assert.Equal(t, string(escrow.DisputeStatusPending), got.DisputeStatus)
	assert.Equal(t, o.FreelancerID, *got.DisputeInitiatorID)
	assert.NotNil(t, got.DisputeOpenedAt)
}

func TestEscrowService_OpenDispute_Stranger(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	repo.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.OpenDispute(ctx, o.ID, uuid.New(), 0, "причина", "")
	assert.True(t, apperror.IsForbidden(err))
}

func TestEscrowService_AddEvidence(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.EscrowStatus = string(escrow.EscrowStatusDisputed)
	o.DisputeStatus = string(escrow.DisputeStatusPending)
	repo.On("GetByID", ctx, o.ID).Return(o, nil)
	repo.On("AddEvidence", ctx, mock.AnythingOfType("*models.DisputeEvidence")).Return(nil)

	e, err := svc.AddEvidence(ctx, o.ID, o.ClientID, models.EvidenceKindScreenshot, "https://cdn.example.com/s.png", "скрин переписки")
	assert.NoError(t, err)
	assert.Equal(t, models.RoleClient, e.Role)
}

func TestEscrowService_AddEvidence_DisputeClosed(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)
	ctx := context.Background()

	o := fundedOrder(uuid.New(), uuid.New())
	o.DisputeStatus = string(escrow.DisputeStatusResolved)
	repo.On("GetByID", ctx, o.ID).Return(o, nil)

	_, err := svc.AddEvidence(ctx, o.ID, o.ClientID, models.EvidenceKindDocument, "https://a", "")
	assert.True(t, apperror.IsConflict(err))
}

func TestEscrowService_AddEvidence_BadKind(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewEscrowService(repo, nil, testWindow)

	_, err := svc.AddEvidence(context.Background(), uuid.New(), uuid.New(), "rumor", "https://a", "")
	assert.True(t, apperror.IsValidation(err))
}
