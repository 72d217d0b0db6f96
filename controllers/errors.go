package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"accommodation-backend/middleware"
	"accommodation-backend/services"
	"accommodation-backend/utils"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{services.ErrDuplicateBooking, http.StatusConflict, "error.duplicateBooking"},
	{services.ErrRefreshInProgress, http.StatusConflict, "error.refreshInProgress"},
	{services.ErrPoolInUse, http.StatusConflict, "error.poolInUse"},
	{services.ErrInvalidTransition, http.StatusConflict, "error.invalidTransition"},
	{services.ErrCapacityExhausted, http.StatusConflict, "error.capacityExhausted"},
	{services.ErrIncompatibleGender, http.StatusUnprocessableEntity, "error.incompatibleGender"},
	{services.ErrParticipantNotConfirmed, http.StatusUnprocessableEntity, "error.participantNotConfirmed"},
	{services.ErrNoPoolConfigured, http.StatusNotFound, "error.noPoolConfigured"},
	{services.ErrNotFound, http.StatusNotFound, "error.notFound"},
	{services.ErrInvalidRequest, http.StatusBadRequest, "error.invalidRequest"},
}

// respondServiceError maps engine errors onto the error envelope. Anything
// unrecognised is logged and reported as a 500 without its detail.
func respondServiceError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			utils.JSONError(c, m.status, m.code, err.Error())
			return
		}
	}
	utils.Logger.WithError(err).
		WithField("request_id", c.GetString(middleware.RequestIDKey)).
		Error("unhandled service error")
	utils.JSONError(c, http.StatusInternalServerError, "error.internal", "internal server error")
}

func respondBindError(c *gin.Context, err error) {
	utils.JSONErrorDetails(c, http.StatusBadRequest, "error.invalidPayload", "Invalid request payload", err.Error())
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidId", "invalid "+name+": "+raw)
		return 0, false
	}
	return uint(n), true
}
