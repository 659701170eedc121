package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventadmission/internal/delivery/http/helpers"
	"eventadmission/internal/delivery/http/middleware"
	"eventadmission/internal/domain"
)

const maxNotesLength = 2000

type RegistrationController struct {
	Logger        *slog.Logger
	Registrations domain.RegistrationService
	Queries       domain.RegistrationQueryService
}

func NewRegistrationController(logger *slog.Logger, registrations domain.RegistrationService, queries domain.RegistrationQueryService) *RegistrationController {
	return &RegistrationController{
		Logger:        logger,
		Registrations: registrations,
		Queries:       queries,
	}
}

// RegistrationSuccessResponse is the success envelope for endpoints returning one registration.
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// RegistrationListSuccessResponse is the success envelope for endpoints returning registrations.
type RegistrationListSuccessResponse struct {
	Data  []*domain.Registration `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// EventStatusSuccessResponse is the success envelope for GET /events/{eventID}/registration/status.
type EventStatusSuccessResponse struct {
	Data  *domain.EventStatus `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// GetStatus godoc
// @Summary Registration status of an event
// @Description Returns the effective registration config with the current participant and waiting list counts. available_spots is -1 when the event has no participant limit.
// @Tags registration
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventStatusSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registration/status [get]
func (c *RegistrationController) GetStatus(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	status, err := c.Queries.GetEventStatus(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, status)
}

// GetMine godoc
// @Summary Current user's registration for an event
// @Tags registration
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registration [get]
func (c *RegistrationController) GetMine(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	reg, err := c.Queries.GetUserRegistration(r.Context(), eventID, userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// RegisterRequest is the optional request body for POST /events/{eventID}/registration.
type RegisterRequest struct {
	FormData map[string]any `json:"form_data"`
	Notes    *string        `json:"notes"`
}

// Validate implements helpers.Validator.
func (r *RegisterRequest) Validate() []string {
	if r.Notes != nil {
		trimmed := strings.TrimSpace(*r.Notes)
		if len(trimmed) > maxNotesLength {
			return []string{"notes must be at most 2000 characters"}
		}
		if trimmed == "" {
			r.Notes = nil
		} else {
			r.Notes = &trimmed
		}
	}
	return nil
}

// Register godoc
// @Summary Register the current user for an event
// @Description Admits the user as confirmed (or pending when the event requires confirmation) while spots remain, otherwise queues them on the waiting list. A previously cancelled or rejected registration is reactivated under the same id.
// @Tags registration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body controllers.RegisterRequest false "Custom form data and notes"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 422 {object} helpers.APIResponse "error.code: already_registered, registration_closed or event_full"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registration [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req RegisterRequest
	if !helpers.DecodeOptional(w, r, &req) {
		return
	}

	reg, err := c.Registrations.Register(r.Context(), domain.RegisterInput{
		EventID:  eventID,
		UserID:   userID,
		FormData: req.FormData,
		Notes:    req.Notes,
	})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// Cancel godoc
// @Summary Cancel the current user's registration
// @Description Cancels the registration. When a confirmed spot is freed, the head of the waiting list is promoted in the background.
// @Tags registration
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 204 "Cancelled"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: cannot_cancel"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registration [delete]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := c.Registrations.Cancel(r.Context(), eventID, userID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine godoc
// @Summary List the current user's registrations
// @Tags registration
// @Produce json
// @Security BearerAuth
// @Param upcoming query bool false "Only registrations that are not cancelled or rejected"
// @Success 200 {object} controllers.RegistrationListSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /my-registrations [get]
func (c *RegistrationController) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var (
		regs []*domain.Registration
		err  error
	)
	if r.URL.Query().Get("upcoming") == "true" {
		regs, err = c.Queries.ListUserUpcomingRegistrations(r.Context(), userID)
	} else {
		regs, err = c.Queries.ListUserRegistrations(r.Context(), userID)
	}
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, regs)
}

func requireEventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID := strings.TrimSpace(r.PathValue("eventID"))
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return "", false
	}
	return eventID, true
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}
