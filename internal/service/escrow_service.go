package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skillmarket/escrow-backend/internal/escrow"
	"github.com/skillmarket/escrow-backend/internal/models"
	"github.com/skillmarket/escrow-backend/internal/pkg/apperror"
)

// OrderRepository — порт хранилища заказов для сервисного слоя.
type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	UpdateState(ctx context.Context, o *models.Order) error
	SubmitWork(ctx context.Context, o *models.Order, d *models.Deliverable) error
	AddEvidence(ctx context.Context, e *models.DisputeEvidence) error
	ListEvidence(ctx context.Context, orderID uuid.UUID) ([]models.DisputeEvidence, error)
	UpdateMilestone(ctx context.Context, o *models.Order, m *models.Milestone, d *models.Deliverable) error
	PayMilestone(ctx context.Context, o *models.Order, m *models.Milestone) error
	ResolveWithRefund(ctx context.Context, o *models.Order, ref *models.Refund, entry *models.AuditEntry) error
	ApplyWithAudit(ctx context.Context, o *models.Order, entry *models.AuditEntry) error
	ListAutoReleasable(ctx context.Context, limit int) ([]models.Order, error)
}

// RiskGate — внешний фрод-контроль, допускающий фондирование заказа.
type RiskGate interface {
	Check(ctx context.Context, clientID uuid.UUID, amount int64) error
}

// AllowAllGate пропускает всё. Используется, пока внешний фрод-сервис
// не подключён к окружению.
type AllowAllGate struct{}

func (AllowAllGate) Check(ctx context.Context, clientID uuid.UUID, amount int64) error {
	return nil
}

// EscrowService управляет жизненным циклом заказа со стороны участников
// сделки: фондирование, сдача работы, ревизии, приёмка, релиз, спор.
type EscrowService struct {
	orders OrderRepository
	risk   RiskGate

	// Окно, после которого sweep-джоба автоматически релизит approved заказ.
	autoReleaseWindow time.Duration
}

func NewEscrowService(orders OrderRepository, risk RiskGate, autoReleaseWindow time.Duration) *EscrowService {
	if risk == nil {
		risk = AllowAllGate{}
	}
	return &EscrowService{orders: orders, risk: risk, autoReleaseWindow: autoReleaseWindow}
}

// CreateOrderInput — параметры оформления заказа. Цена и шаблон этапов
// приходят от каталога гигов на момент оформления.
type CreateOrderInput struct {
	GigID        uuid.UUID
	ClientID     uuid.UUID
	FreelancerID uuid.UUID
	Title        string
	Price        int64
	Milestones   []MilestoneInput
}

type MilestoneInput struct {
	Title       string
	Description string
	Amount      int64
	DueDate     *time.Time
}

// CreateOrder создаёт заказ одновременно с успешным фондированием: запись
// появляется только с уже удержанными средствами.
func (s *EscrowService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.Title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название заказа обязательно")
	}
	if in.Price <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена заказа должна быть положительной")
	}
	if in.ClientID == in.FreelancerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "заказчик и исполнитель не могут совпадать")
	}

	var total int64
	milestones := make([]models.Milestone, 0, len(in.Milestones))
	for i, mi := range in.Milestones {
		if mi.Title == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "название этапа обязательно")
		}
		if mi.Amount <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "сумма этапа должна быть положительной")
		}
		total += mi.Amount
		milestones = append(milestones, models.Milestone{
			Position:    i,
			Title:       mi.Title,
			Description: mi.Description,
			Amount:      mi.Amount,
			DueDate:     mi.DueDate,
			Status:      string(escrow.MilestoneStatusPending),
		})
	}
	if total > in.Price {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма этапов превышает цену заказа")
	}

	// Внешний фрод-контроль гейтит допуск к фондированию.
	if err := s.risk.Check(ctx, in.ClientID, in.Price); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeForbidden, "фондирование отклонено фрод-контролем")
	}

	o := &models.Order{
		GigID:         in.GigID,
		ClientID:      in.ClientID,
		FreelancerID:  in.FreelancerID,
		Title:         in.Title,
		Price:         in.Price,
		Status:        string(escrow.OrderStatusPending),
		EscrowStatus:  string(escrow.EscrowStatusFunded),
		DisputeStatus: string(escrow.DisputeStatusNone),
		PaidAt:        time.Now(),
		Milestones:    milestones,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder возвращает заказ участнику сделки или администратору.
func (s *EscrowService) GetOrder(ctx context.Context, orderID, actorID uuid.UUID, role string) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && o.ClientID != actorID && o.FreelancerID != actorID {
		return nil, apperror.ErrForbidden
	}
	return o, nil
}

// ListMyOrders возвращает заказы пользователя.
func (s *EscrowService) ListMyOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.orders.ListByUser(ctx, userID, limit, offset)
}

// SubmitWork фиксирует сдачу работы исполнителем. Повторная сдача после
// запроса ревизии идёт тем же переходом.
func (s *EscrowService) SubmitWork(ctx context.Context, orderID, actorID uuid.UUID, version int64, previewURL, finalURL string) (*models.Order, error) {
	if previewURL == "" || finalURL == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "ссылки на превью и финальный файл обязательны")
	}

	o, err := s.loadForUpdate(ctx, orderID, version)
	if err != nil {
		return nil, err
	}
	if o.FreelancerID != actorID {
		return nil, apperror.ErrForbidden
	}

	if err := escrow.Transition(o, escrow.EscrowStatusWorkSubmitted); err != nil {
		return nil, err
	}

	now := time.Now()
	if o.WorkStartedAt == nil {
		o.WorkStartedAt = &now
	}
	reviewDeadline := now.Add(s.autoReleaseWindow)
	o.ClientReviewDeadline = &reviewDeadline

	d := &models.Deliverable{
		OrderID:    o.ID,
		PreviewURL: previewURL,
		FinalURL:   finalURL,
		Revision:   o.Revision,
	}

	if err := s.orders.SubmitWork(ctx, o, d); err != nil {
		return nil, err
	}
	o.Deliverables = append(o.Deliverables, *d)
	return o, nil
}

// RequestRevision — заказчик возвращает работу на доработку.
// Счётчик ревизий растёт, escrow остаётся в work_submitted.
func (s *EscrowService) RequestRevision(ctx context.Context, orderID, actorID uuid.UUID, version int64) (*models.Order, error) {
	o, err := s.loadForUpdate(ctx, orderID, version)
	if err != nil {
		return nil, err
	}
	if o.ClientID != actorID {
		return nil, apperror.ErrForbidden
	}

	if escrow.EscrowStatus(o.EscrowStatus) != escrow.EscrowStatusWorkSubmitted {
		return nil, apperror.Conflict("ревизию можно запросить только по сданной работе", o.EscrowStatus)
	}
	if err := escrow.Transition(o, escrow.EscrowStatusWorkSubmitted); err != nil {
		return nil, err
	}
	o.Revision++

	if err := s.orders.UpdateState(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Approve — заказчик принимает работу. Назначается дедлайн авторелиза:
// если заказчик больше ничего не сделает, sweep-джоба освободит средства.
func (s *EscrowService) Approve(ctx context.Context, orderID, actorID uuid.UUID, version int64) (*models.Order, error) {
	o, err := s.loadForUpdate(ctx, orderID, version)
	if err != nil {
		return nil, err
	}
	if o.ClientID != actorID {
		return nil, apperror.ErrForbidden
	}

	if err := escrow.Transition(o, escrow.EscrowStatusApproved); err != nil {
		return nil, err
	}

	now := time.Now()
	o.ApprovedAt = &now
	autoRelease := now.Add(s.autoReleaseWindow)
	o.AutoReleaseDate = &autoRelease

	if err := s.orders.UpdateState(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Release освобождает средства исполнителю. Доступен заказчику; авторелиз
// по дедлайну идёт ровно этим же переходом (см. SweepService).
func (s *EscrowService) Release(ctx context.Context, orderID, actorID uuid.UUID, version int64) (*models.Order, error) {
	o, err := s.loadForUpdate(ctx, orderID, version)
	if err != nil {
		return nil, err
	}
	if o.ClientID != actorID {
		return nil, apperror.ErrForbidden
	}

	if err := releaseOrder(o); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateState(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// OpenDispute открывает спор от имени любой из сторон и немедленно
// замораживает обычное течение заказа.
func (s *EscrowService) OpenDispute(ctx context.Context, orderID, actorID uuid.UUID, version int64, reason, details string) (*models.Order, error) {
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина спора обязательна")
	}

	o, err := s.loadForUpdate(ctx, orderID, version)
	if err != nil {
		return nil, err
	}
	if o.ClientID != actorID && o.FreelancerID != actorID {
		return nil, apperror.ErrForbidden
	}

	// Вход в спор меняет все три оси разом: escrow disputed,
	// status disputed, dispute_status pending.
	if err := escrow.Transition(o, escrow.EscrowStatusDisputed); err != nil {
		return nil, err
	}
	if err := escrow.TransitionDispute(o, escrow.DisputeStatusPending); err != nil {
		return nil, err
	}

	now := time.Now()
	o.DisputeReason = &reason
	o.DisputeDetails = &details
	o.DisputeInitiatorID = &actorID
	o.DisputeOpenedAt = &now

	if err := s.orders.UpdateState(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// AddEvidence прикладывает доказательство стороны спора.
func (s *EscrowService) AddEvidence(ctx context.Context, orderID, actorID uuid.UUID, kind, url, comment string) (*models.DisputeEvidence, error) {
	if _, ok := models.ValidEvidenceKinds[kind]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный вид доказательства")
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var role string
	switch actorID {
	case o.ClientID:
		role = models.RoleClient
	case o.FreelancerID:
		role = models.RoleFreelancer
	default:
		return nil, apperror.ErrForbidden
	}

	ds := escrow.DisputeStatus(o.DisputeStatus)
	if ds != escrow.DisputeStatusPending && ds != escrow.DisputeStatusUnderReview {
		return nil, apperror.Conflict("доказательства принимаются только по открытому спору", o.DisputeStatus)
	}

	e := &models.DisputeEvidence{
		OrderID:     o.ID,
		SubmitterID: actorID,
		Role:        role,
		Kind:        kind,
		Comment:     comment,
	}
	if url != "" {
		e.URL = &url
	}

	if err := s.orders.AddEvidence(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListEvidence возвращает доказательства спора участнику или администратору.
func (s *EscrowService) ListEvidence(ctx context.Context, orderID, actorID uuid.UUID, role string) ([]models.DisputeEvidence, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && o.ClientID != actorID && o.FreelancerID != actorID {
		return nil, apperror.ErrForbidden
	}
	return s.orders.ListEvidence(ctx, orderID)
}

// loadForUpdate загружает заказ и сверяет версию, прочитанную клиентом.
// Нулевая версия означает «без явной проверки»: запись всё равно защищена
// CAS-обновлением в репозитории.
func (s *EscrowService) loadForUpdate(ctx context.Context, orderID uuid.UUID, version int64) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if version > 0 && version != o.Version {
		return nil, apperror.ErrVersionConflict
	}
	return o, nil
}

// releaseOrder выполняет guarded-переход в released и проставляет метки
// времени. Единственный путь к released для ручного и автоматического релиза.
func releaseOrder(o *models.Order) error {
	if err := escrow.Transition(o, escrow.EscrowStatusReleased); err != nil {
		return err
	}
	now := time.Now()
	o.ReleasedAt = &now
	o.CompletedAt = &now
	o.AutoReleaseDate = nil
	return nil
}
