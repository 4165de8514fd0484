package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillmarket/escrow-backend/internal/dto"
	"github.com/skillmarket/escrow-backend/internal/http/handlers/common"
	"github.com/skillmarket/escrow-backend/internal/service"
)

type MilestoneHandler struct {
	milestones *service.MilestoneService
}

func NewMilestoneHandler(milestones *service.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones}
}

func (h *MilestoneHandler) ids(c *gin.Context) (orderID, milestoneID, userID uuid.UUID, ok bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	orderID, err = common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	milestoneID, err = common.ParseUUIDParam(c, "milestoneId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	return orderID, milestoneID, userID, true
}

// Start POST /orders/:id/milestones/:milestoneId/start
func (h *MilestoneHandler) Start(c *gin.Context) {
	orderID, milestoneID, userID, ok := h.ids(c)
	if !ok {
		return
	}

	var req dto.VersionedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	m, err := h.milestones.Start(c.Request.Context(), orderID, milestoneID, userID, req.Version)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Submit POST /orders/:id/milestones/:milestoneId/submit
func (h *MilestoneHandler) Submit(c *gin.Context) {
	orderID, milestoneID, userID, ok := h.ids(c)
	if !ok {
		return
	}

	var req dto.SubmitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	m, err := h.milestones.Submit(c.Request.Context(), orderID, milestoneID, userID, req.Version, req.PreviewURL, req.FinalURL)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Approve POST /orders/:id/milestones/:milestoneId/approve
func (h *MilestoneHandler) Approve(c *gin.Context) {
	orderID, milestoneID, userID, ok := h.ids(c)
	if !ok {
		return
	}

	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	m, err := h.milestones.Approve(c.Request.Context(), orderID, milestoneID, userID, req.Version, req.Feedback)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Pay POST /orders/:id/milestones/:milestoneId/pay
func (h *MilestoneHandler) Pay(c *gin.Context) {
	orderID, milestoneID, userID, ok := h.ids(c)
	if !ok {
		return
	}

	var req dto.VersionedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	m, err := h.milestones.Pay(c.Request.Context(), orderID, milestoneID, userID, req.Version)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}
