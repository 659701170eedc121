package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventadmission/internal/delivery/http/controllers"
)

// NewRouter initializes the HTTP router with all application routes.
// requireAuth wraps every route that needs an authenticated user.
func NewRouter(
	registrationController *controllers.RegistrationController,
	adminController *controllers.AdminRegistrationController,
	requireAuth func(http.HandlerFunc) http.HandlerFunc,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /events/{eventID}/registration/status", registrationController.GetStatus)

	// Current user
	mux.HandleFunc("GET /events/{eventID}/registration", requireAuth(registrationController.GetMine))
	mux.HandleFunc("POST /events/{eventID}/registration", requireAuth(registrationController.Register))
	mux.HandleFunc("DELETE /events/{eventID}/registration", requireAuth(registrationController.Cancel))
	mux.HandleFunc("GET /my-registrations", requireAuth(registrationController.ListMine))

	// Admin
	mux.HandleFunc("GET /admin/events/{eventID}/registrations", requireAuth(adminController.ListRegistrations))
	mux.HandleFunc("GET /admin/events/{eventID}/waiting-list", requireAuth(adminController.GetWaitingList))
	mux.HandleFunc("POST /admin/events/{eventID}/waiting-list/promote", requireAuth(adminController.PromoteNext))
	mux.HandleFunc("GET /admin/events/{eventID}/registration-config", requireAuth(adminController.GetConfig))
	mux.HandleFunc("PUT /admin/events/{eventID}/registration-config", requireAuth(adminController.UpdateConfig))
	mux.HandleFunc("DELETE /admin/events/{eventID}/registration-config", requireAuth(adminController.DeleteConfig))
	mux.HandleFunc("GET /admin/registrations/{id}", requireAuth(adminController.GetRegistration))
	mux.HandleFunc("DELETE /admin/registrations/{id}", requireAuth(adminController.DeleteRegistration))
	mux.HandleFunc("POST /admin/registrations/{id}/confirm", requireAuth(adminController.Confirm))
	mux.HandleFunc("POST /admin/registrations/{id}/reject", requireAuth(adminController.Reject))
	mux.HandleFunc("POST /admin/registrations/{id}/waiting-list", requireAuth(adminController.MoveToWaitingList))
	mux.HandleFunc("PATCH /admin/registrations/{id}/notes", requireAuth(adminController.UpdateAdminNotes))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
