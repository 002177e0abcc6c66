package handler

import (
	"github.com/gofiber/fiber/v2"

	"incorpapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Probes are
// public; every registration route runs auth first.
func RegisterRoutes(app *fiber.App, db Pinger, svc service.RegistrationService, auth fiber.Handler) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/registrations", auth, CreateRegistration(svc))
	app.Get("/registrations", auth, ListRegistrations(svc))
	app.Get("/registrations/:id", auth, GetRegistration(svc))
	app.Patch("/registrations/:id", auth, PatchRegistration(svc))
	app.Delete("/registrations/:id", auth, DeleteRegistration(svc))
	app.Post("/registrations/:id/reopen", auth, ReopenRegistration(svc))
	app.Get("/registrations/:id/fees", auth, RegistrationFees(svc))
	app.Get("/registrations/:id/documents/:slot", auth, DocumentLinks(svc))

	app.Post("/fees/quote", auth, QuoteFees(svc))
	app.Post("/admin/expiry/sweep", auth, SweepExpiry(svc))
}
