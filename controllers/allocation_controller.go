// controllers/allocation_controller.go
package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"accommodation-backend/middleware"
	"accommodation-backend/models"
	"accommodation-backend/services"
	"accommodation-backend/utils"

	"github.com/gin-gonic/gin"
)

// ---------------------------
// Payload / DTOs
// ---------------------------

type CreateAllocationPayload struct {
	ParticipantID         uint   `json:"participant_id" binding:"required"`
	AccommodationType     string `json:"accommodation_type" binding:"required"`
	RoomID                *uint  `json:"room_id" binding:"omitempty,min=1"`
	RoomType              string `json:"room_type"`
	ShareWithAllocationID *uint  `json:"share_with_allocation_id" binding:"omitempty,min=1"`
	CheckInDate           string `json:"check_in_date"`
	CheckOutDate          string `json:"check_out_date"`
	Notes                 string `json:"notes" binding:"max=1000"`
}

func (p CreateAllocationPayload) toRequest() (services.AccommodationRequest, error) {
	checkIn, err := utils.ParseDate(p.CheckInDate)
	if err != nil {
		return services.AccommodationRequest{}, err
	}
	checkOut, err := utils.ParseDate(p.CheckOutDate)
	if err != nil {
		return services.AccommodationRequest{}, err
	}
	accType, ok := models.ParseAccommodationType(p.AccommodationType)
	if !ok {
		return services.AccommodationRequest{}, fmt.Errorf("unknown accommodation_type %q", p.AccommodationType)
	}
	var roomType models.RoomType
	if strings.TrimSpace(p.RoomType) != "" {
		if roomType, ok = models.ParseRoomType(p.RoomType); !ok {
			return services.AccommodationRequest{}, fmt.Errorf("unknown room_type %q", p.RoomType)
		}
	}
	return services.AccommodationRequest{
		AccommodationType:     accType,
		RoomID:                p.RoomID,
		RoomType:              roomType,
		ShareWithAllocationID: p.ShareWithAllocationID,
		CheckInDate:           checkIn,
		CheckOutDate:          checkOut,
		Notes:                 strings.TrimSpace(p.Notes),
	}, nil
}

// ---------------------------
// Controller
// ---------------------------

type AllocationController struct {
	AllocationSvc *services.AllocationService
}

func NewAllocationController(svc *services.AllocationService) *AllocationController {
	return &AllocationController{AllocationSvc: svc}
}

// POST /api/events/:eventId/allocations
func (ctrl *AllocationController) CreateAllocation(c *gin.Context) {
	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	var payload CreateAllocationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		respondBindError(c, err)
		return
	}

	alloc, err := ctrl.AllocationSvc.CreateAllocation(c.Request.Context(), middleware.TenantFrom(c), payload.ParticipantID, eventID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, alloc)
}

// GET /api/events/:eventId/allocations?status=
func (ctrl *AllocationController) ListEventAllocations(c *gin.Context) {
	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	var status *models.AllocationStatus
	if raw := c.Query("status"); raw != "" {
		s, valid := models.ParseAllocationStatus(raw)
		if !valid {
			utils.JSONError(c, http.StatusBadRequest, "error.invalidStatus", "unknown status: "+raw)
			return
		}
		status = &s
	}

	list, err := ctrl.AllocationSvc.ListEventAllocations(c.Request.Context(), middleware.TenantFrom(c), eventID, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

// GET /api/events/:eventId/capacity
func (ctrl *AllocationController) GetRemainingCapacity(c *gin.Context) {
	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	snap, err := ctrl.AllocationSvc.GetRemainingCapacity(c.Request.Context(), middleware.TenantFrom(c), eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, snap)
}

// POST /api/events/:eventId/refresh
func (ctrl *AllocationController) RefreshEventBooking(c *gin.Context) {
	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	stats, err := ctrl.AllocationSvc.RefreshEventBooking(c.Request.Context(), middleware.TenantFrom(c), eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, stats)
}

// POST /api/events/:eventId/assign
func (ctrl *AllocationController) AssignPending(c *gin.Context) {
	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	stats, err := ctrl.AllocationSvc.AssignPending(c.Request.Context(), middleware.TenantFrom(c), eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, stats)
}

// POST /api/events/:eventId/reconcile
func (ctrl *AllocationController) ReconcileEvent(c *gin.Context) {
	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	snap, err := ctrl.AllocationSvc.ReconcileEvent(c.Request.Context(), middleware.TenantFrom(c), eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, snap)
}

// GET /api/allocations/:id
func (ctrl *AllocationController) GetAllocation(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	alloc, err := ctrl.AllocationSvc.GetAllocation(c.Request.Context(), middleware.TenantFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, alloc)
}

// POST /api/allocations/:id/cancel
func (ctrl *AllocationController) CancelAllocation(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	alloc, err := ctrl.AllocationSvc.CancelAllocation(c.Request.Context(), middleware.TenantFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, alloc)
}

// POST /api/allocations/:id/check-in
func (ctrl *AllocationController) CheckIn(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	alloc, err := ctrl.AllocationSvc.CheckIn(c.Request.Context(), middleware.TenantFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, alloc)
}

// DELETE /api/allocations/:id
func (ctrl *AllocationController) PurgeAllocation(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.AllocationSvc.PurgeAllocation(c.Request.Context(), middleware.TenantFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"id": id, "purged": true})
}
