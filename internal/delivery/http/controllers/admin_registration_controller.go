package controllers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventadmission/internal/delivery/http/helpers"
	"eventadmission/internal/domain"
)

type AdminRegistrationController struct {
	Logger        *slog.Logger
	Registrations domain.RegistrationService
	Queries       domain.RegistrationQueryService
	WaitingList   domain.WaitingListService
}

func NewAdminRegistrationController(
	logger *slog.Logger,
	registrations domain.RegistrationService,
	queries domain.RegistrationQueryService,
	waitingList domain.WaitingListService,
) *AdminRegistrationController {
	return &AdminRegistrationController{
		Logger:        logger,
		Registrations: registrations,
		Queries:       queries,
		WaitingList:   waitingList,
	}
}

// PaginatedRegistrations is the data payload of GET /admin/events/{eventID}/registrations.
type PaginatedRegistrations struct {
	Items      []*domain.Registration `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListRegistrationsSuccessResponse is the success envelope for GET /admin/events/{eventID}/registrations.
type ListRegistrationsSuccessResponse struct {
	Data  PaginatedRegistrations `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// RegistrationConfigSuccessResponse is the success envelope for registration config endpoints.
type RegistrationConfigSuccessResponse struct {
	Data  *domain.RegistrationConfig `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// ListRegistrations godoc
// @Summary List an event's registrations
// @Description Registrations in creation order, optionally filtered by state.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param state query string false "pending, confirmed, waiting_list, cancelled or rejected"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListRegistrationsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/registrations [get]
func (c *AdminRegistrationController) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	var state *domain.RegistrationState
	if s := r.URL.Query().Get("state"); s != "" {
		st := domain.RegistrationState(s)
		state = &st
	}
	page := helpers.ParsePagination(r)
	regs, total, err := c.Queries.ListRegistrations(r.Context(), eventID, state, page)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, PaginatedRegistrations{
		Items:      regs,
		Pagination: helpers.NewPaginationMeta(page, total),
	})
}

// GetWaitingList godoc
// @Summary Waiting list of an event
// @Description Queued registrations ordered by position.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.RegistrationListSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/waiting-list [get]
func (c *AdminRegistrationController) GetWaitingList(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	regs, err := c.Queries.GetWaitingList(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, regs)
}

// PromoteNext godoc
// @Summary Promote the head of the waiting list
// @Description Confirms the first queued registration regardless of capacity. data is null when the queue is empty.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/waiting-list/promote [post]
func (c *AdminRegistrationController) PromoteNext(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	reg, err := c.WaitingList.PromoteNext(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// GetConfig godoc
// @Summary Effective registration config of an event
// @Description Returns the stored config, or the process defaults when none is stored.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.RegistrationConfigSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/registration-config [get]
func (c *AdminRegistrationController) GetConfig(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	cfg, err := c.Registrations.GetConfig(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, cfg)
}

// RegistrationConfigRequest is the request body for PUT /admin/events/{eventID}/registration-config.
// The stored config is replaced as a whole.
type RegistrationConfigRequest struct {
	RegistrationEnabled  bool                 `json:"registration_enabled"`
	MaxParticipants      *int                 `json:"max_participants"`
	WaitingListEnabled   bool                 `json:"waiting_list_enabled"`
	MaxWaitingList       *int                 `json:"max_waiting_list"`
	OpensAt              *time.Time           `json:"registration_opens_at"`
	ClosesAt             *time.Time           `json:"registration_closes_at"`
	CancellationDeadline *time.Time           `json:"cancellation_deadline"`
	RequiresConfirmation bool                 `json:"requires_confirmation"`
	RequiresPayment      bool                 `json:"requires_payment"`
	MembersOnly          bool                 `json:"members_only"`
	CustomFields         []domain.CustomField `json:"custom_fields"`
	ConfirmationMessage  *string              `json:"confirmation_message"`
	NotificationEmail    *string              `json:"notification_email"`
}

// Validate implements helpers.Validator.
func (req RegistrationConfigRequest) Validate() []string {
	var errs []string
	if req.MaxParticipants != nil && *req.MaxParticipants < 0 {
		errs = append(errs, "max_participants must not be negative")
	}
	if req.MaxWaitingList != nil && *req.MaxWaitingList < 0 {
		errs = append(errs, "max_waiting_list must not be negative")
	}
	if req.OpensAt != nil && req.ClosesAt != nil && req.ClosesAt.Before(*req.OpensAt) {
		errs = append(errs, "registration_closes_at must not be before registration_opens_at")
	}
	if req.NotificationEmail != nil && *req.NotificationEmail != "" {
		if _, err := mail.ParseAddress(*req.NotificationEmail); err != nil {
			errs = append(errs, "notification_email must be a valid email address")
		}
	}
	seen := make(map[string]bool, len(req.CustomFields))
	for i, f := range req.CustomFields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			errs = append(errs, fmt.Sprintf("custom_fields[%d].name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Sprintf("custom_fields[%d].name %q is duplicated", i, name))
		}
		seen[name] = true
	}
	return errs
}

func (req RegistrationConfigRequest) toConfig(eventID string) *domain.RegistrationConfig {
	fields := req.CustomFields
	if fields == nil {
		fields = []domain.CustomField{}
	}
	notificationEmail := req.NotificationEmail
	if notificationEmail != nil && *notificationEmail == "" {
		notificationEmail = nil
	}
	return &domain.RegistrationConfig{
		EventID:              eventID,
		RegistrationEnabled:  req.RegistrationEnabled,
		MaxParticipants:      req.MaxParticipants,
		WaitingListEnabled:   req.WaitingListEnabled,
		MaxWaitingList:       req.MaxWaitingList,
		OpensAt:              req.OpensAt,
		ClosesAt:             req.ClosesAt,
		CancellationDeadline: req.CancellationDeadline,
		RequiresConfirmation: req.RequiresConfirmation,
		RequiresPayment:      req.RequiresPayment,
		MembersOnly:          req.MembersOnly,
		CustomFields:         fields,
		ConfirmationMessage:  req.ConfirmationMessage,
		NotificationEmail:    notificationEmail,
	}
}

// UpdateConfig godoc
// @Summary Replace the registration config of an event
// @Description Stores the full config. Lowering max_participants never evicts confirmed registrations.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body controllers.RegistrationConfigRequest true "Registration config"
// @Success 200 {object} controllers.RegistrationConfigSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/registration-config [put]
func (c *AdminRegistrationController) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	var req RegistrationConfigRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	cfg := req.toConfig(eventID)
	if err := c.Registrations.UpdateConfig(r.Context(), cfg); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, cfg)
}

// DeleteConfig godoc
// @Summary Delete the stored registration config of an event
// @Description The event falls back to the process defaults afterwards.
// @Tags admin
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 204 "Deleted"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/registration-config [delete]
func (c *AdminRegistrationController) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	eventID, ok := requireEventID(w, r)
	if !ok {
		return
	}
	if err := c.Registrations.DeleteConfig(r.Context(), eventID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRegistration godoc
// @Summary Get a registration by id
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/registrations/{id} [get]
func (c *AdminRegistrationController) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRegistrationID(w, r)
	if !ok {
		return
	}
	reg, err := c.Queries.Find(r.Context(), id)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// Confirm godoc
// @Summary Confirm a registration
// @Description Confirms a pending or queued registration. Capacity is not checked.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_transition"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/registrations/{id}/confirm [post]
func (c *AdminRegistrationController) Confirm(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Registrations.Confirm)
}

// Reject godoc
// @Summary Reject a registration
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_transition"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/registrations/{id}/reject [post]
func (c *AdminRegistrationController) Reject(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Registrations.Reject)
}

// MoveToWaitingList godoc
// @Summary Move a registration to the waiting list
// @Description Queues the registration at the end of the waiting list. Does not promote anyone into a freed spot.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_transition"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/registrations/{id}/waiting-list [post]
func (c *AdminRegistrationController) MoveToWaitingList(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Registrations.MoveToWaitingList)
}

func (c *AdminRegistrationController) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*domain.Registration, error)) {
	id, ok := requireRegistrationID(w, r)
	if !ok {
		return
	}
	reg, err := fn(r.Context(), id)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// AdminNotesRequest is the request body for PATCH /admin/registrations/{id}/notes. A null or empty
// admin_notes clears the notes.
type AdminNotesRequest struct {
	AdminNotes *string `json:"admin_notes"`
}

// Validate implements helpers.Validator.
func (req *AdminNotesRequest) Validate() []string {
	if req.AdminNotes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*req.AdminNotes)
	if len(trimmed) > maxNotesLength {
		return []string{"admin_notes must be at most 2000 characters"}
	}
	if trimmed == "" {
		req.AdminNotes = nil
	} else {
		req.AdminNotes = &trimmed
	}
	return nil
}

// UpdateAdminNotes godoc
// @Summary Set the admin notes of a registration
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Param body body controllers.AdminNotesRequest true "Admin notes"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/registrations/{id}/notes [patch]
func (c *AdminRegistrationController) UpdateAdminNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRegistrationID(w, r)
	if !ok {
		return
	}
	var req AdminNotesRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Registrations.UpdateAdminNotes(r.Context(), id, req.AdminNotes)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// DeleteRegistration godoc
// @Summary Hard-delete a registration
// @Description Removes the row. Deleting a queued registration closes its gap in the waiting list; no one is promoted.
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 204 "Deleted"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/registrations/{id} [delete]
func (c *AdminRegistrationController) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRegistrationID(w, r)
	if !ok {
		return
	}
	if err := c.Registrations.Delete(r.Context(), id); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireRegistrationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if err := uuid.Validate(id); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "id must be a valid UUID")
		return "", false
	}
	return id, true
}
