package controllers

import (
	"net/http"

	"accommodation-backend/middleware"
	"accommodation-backend/services"
	"accommodation-backend/utils"

	"github.com/gin-gonic/gin"
)

type VendorPayload struct {
	Name         string `json:"name" binding:"required,max=255"`
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone string `json:"contact_phone" binding:"max=64"`
}

type VendorPoolPayload struct {
	VendorAccommodationID uint   `json:"vendor_accommodation_id" binding:"required"`
	SingleRoomsTotal      int    `json:"single_rooms_total" binding:"min=0"`
	DoubleRoomsTotal      int    `json:"double_rooms_total" binding:"min=0"`
	CheckInDate           string `json:"check_in_date"`
	CheckOutDate          string `json:"check_out_date"`
}

type GuestHousePayload struct {
	Name    string `json:"name" binding:"required,max=255"`
	Address string `json:"address"`
}

type RoomPayload struct {
	RoomNumber string `json:"room_number" binding:"required,max=50"`
	Floor      string `json:"floor" binding:"max=10"`
	Capacity   int    `json:"capacity" binding:"required,min=1"`
}

// PoolController serves admin setup: vendors, vendor pools, guesthouses and
// rooms. A pool update with ?refresh=true rebuilds the event's vendor
// bookings against the new pool.
type PoolController struct {
	PoolSvc       *services.PoolService
	AllocationSvc *services.AllocationService
}

func NewPoolController(pools *services.PoolService, allocations *services.AllocationService) *PoolController {
	return &PoolController{PoolSvc: pools, AllocationSvc: allocations}
}

// ---------------------------
// Vendors
// ---------------------------

func (ctrl *PoolController) CreateVendor(c *gin.Context) {
	var payload VendorPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	v, err := ctrl.PoolSvc.CreateVendor(c.Request.Context(), middleware.TenantFrom(c), services.VendorInput{
		Name:         payload.Name,
		Address:      payload.Address,
		ContactEmail: payload.ContactEmail,
		ContactPhone: payload.ContactPhone,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, v)
}

func (ctrl *PoolController) ListVendors(c *gin.Context) {
	list, err := ctrl.PoolSvc.ListVendors(c.Request.Context(), middleware.TenantFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

// ---------------------------
// Vendor pools
// ---------------------------

func (ctrl *PoolController) GetEventVendorPool(c *gin.Context) {
	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	pool, err := ctrl.PoolSvc.GetEventVendorPool(c.Request.Context(), middleware.TenantFrom(c), eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, pool)
}

func (ctrl *PoolController) UpsertEventVendorPool(c *gin.Context) {
	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	var payload VendorPoolPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	checkIn, err := utils.ParseDate(payload.CheckInDate)
	if err != nil {
		respondBindError(c, err)
		return
	}
	checkOut, err := utils.ParseDate(payload.CheckOutDate)
	if err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	tenant := middleware.TenantFrom(c)
	pool, err := ctrl.PoolSvc.UpsertEventVendorPool(ctx, tenant, eventID, services.VendorPoolInput{
		VendorAccommodationID: payload.VendorAccommodationID,
		SingleRoomsTotal:      payload.SingleRoomsTotal,
		DoubleRoomsTotal:      payload.DoubleRoomsTotal,
		CheckInDate:           checkIn,
		CheckOutDate:          checkOut,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if c.Query("refresh") != "true" {
		utils.JSONSuccess(c, http.StatusOK, pool)
		return
	}

	stats, err := ctrl.AllocationSvc.RefreshEventBooking(ctx, tenant, eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	// counters changed during the refresh
	pool, err = ctrl.PoolSvc.GetEventVendorPool(ctx, tenant, eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"pool": pool, "refresh": stats})
}

func (ctrl *PoolController) DeleteEventVendorPool(c *gin.Context) {
	eventID, ok := parseUintParam(c, "eventId")
	if !ok {
		return
	}
	if err := ctrl.PoolSvc.DeleteEventVendorPool(c.Request.Context(), middleware.TenantFrom(c), eventID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"event_id": eventID, "deleted": true})
}

// ---------------------------
// Guesthouses and rooms
// ---------------------------

func (ctrl *PoolController) CreateGuestHouse(c *gin.Context) {
	var payload GuestHousePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	gh, err := ctrl.PoolSvc.CreateGuestHouse(c.Request.Context(), middleware.TenantFrom(c), services.GuestHouseInput{
		Name:    payload.Name,
		Address: payload.Address,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, gh)
}

func (ctrl *PoolController) ListGuestHouses(c *gin.Context) {
	list, err := ctrl.PoolSvc.ListGuestHouses(c.Request.Context(), middleware.TenantFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

func (ctrl *PoolController) CreateRoom(c *gin.Context) {
	ghID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var payload RoomPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	room, err := ctrl.PoolSvc.CreateRoom(c.Request.Context(), middleware.TenantFrom(c), ghID, services.RoomInput{
		RoomNumber: payload.RoomNumber,
		Floor:      payload.Floor,
		Capacity:   payload.Capacity,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, room)
}

func (ctrl *PoolController) ListRooms(c *gin.Context) {
	ghID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	list, err := ctrl.PoolSvc.ListRooms(c.Request.Context(), middleware.TenantFrom(c), ghID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

func (ctrl *PoolController) DeleteRoom(c *gin.Context) {
	roomID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.PoolSvc.DeleteRoom(c.Request.Context(), middleware.TenantFrom(c), roomID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"id": roomID, "deleted": true})
}
