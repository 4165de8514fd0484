package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillmarket/escrow-backend/internal/dto"
	"github.com/skillmarket/escrow-backend/internal/http/handlers/common"
	"github.com/skillmarket/escrow-backend/internal/service"
)

type AdminHandler struct {
	admin   *service.AdminService
	refunds *service.RefundService
}

func NewAdminHandler(admin *service.AdminService, refunds *service.RefundService) *AdminHandler {
	return &AdminHandler{admin: admin, refunds: refunds}
}

// GetOrder GET /admin/orders/:id
func (h *AdminHandler) GetOrder(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.admin.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ForceStatus POST /admin/orders/:id/force-status
func (h *AdminHandler) ForceStatus(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ForceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.admin.ForceStatus(c.Request.Context(), orderID, adminID, req.Version, req.Status, req.Reason)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// DirectRefund POST /admin/orders/:id/refund
func (h *AdminHandler) DirectRefund(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.DirectRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.refunds.DirectRefund(c.Request.Context(), orderID, adminID, req.Version, req.Amount, req.Reason)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// AuditTrail GET /admin/orders/:id/audit
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	entries, err := h.admin.AuditTrail(c.Request.Context(), orderID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit": entries})
}
