package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillmarket/escrow-backend/internal/dto"
	"github.com/skillmarket/escrow-backend/internal/http/handlers/common"
	"github.com/skillmarket/escrow-backend/internal/service"
)

type RefundHandler struct {
	refunds *service.RefundService
}

func NewRefundHandler(refunds *service.RefundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// Request POST /orders/:id/refund
func (h *RefundHandler) Request(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RequestRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	ref, err := h.refunds.Request(c.Request.Context(), service.RequestRefundInput{
		OrderID:  orderID,
		ClientID: userID,
		Amount:   req.Amount,
		Reason:   req.Reason,
		Details:  req.Details,
		Priority: req.Priority,
		Method:   req.Method,
	})
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ref)
}

// ListByOrder GET /orders/:id/refunds
func (h *RefundHandler) ListByOrder(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	refunds, err := h.refunds.ListByOrder(c.Request.Context(), orderID, userID, role)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunds": refunds})
}

// Get GET /refunds/:refundId
func (h *RefundHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	refundID, err := common.ParseUUIDParam(c, "refundId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	ref, err := h.refunds.Get(c.Request.Context(), refundID, userID, role)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ref)
}

// List GET /admin/refunds
func (h *RefundHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	status := c.Query("status")

	refunds, err := h.refunds.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunds": refunds})
}

// Process POST /admin/refunds/:refundId/process
func (h *RefundHandler) Process(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	refundID, err := common.ParseUUIDParam(c, "refundId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ProcessRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	ref, err := h.refunds.Process(c.Request.Context(), refundID, adminID, req.Approve, req.Notes)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ref)
}
