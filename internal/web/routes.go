package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/lbansal/face-attendance/internal/web/handlers"
	"github.com/lbansal/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes(stores Stores, signals handlers.SignalSource, gallery handlers.Gallery) {
	recordsHandler := handlers.NewRecordsHandler(stores.Records)
	subjectsHandler := handlers.NewSubjectsHandler(stores.Subjects, gallery)
	displayHandler := handlers.NewDisplayHandler(signals, &s.config.Modes)
	eventsHandler := handlers.NewEventsHandler(stores.Events)

	s.router.Use(middleware.CORS())

	// Kiosk endpoints (no auth, the display polls these)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Get("/api/v1/display", displayHandler.State)

	// Admin API
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.AdminToken))

		// Records
		r.Get("/records", recordsHandler.List)
		r.Get("/records/export", recordsHandler.ExportCSV)
		r.Get("/records/{id}", recordsHandler.Get)
		r.Put("/records/{id}", recordsHandler.Put)
		r.Patch("/records/{id}", recordsHandler.Update)
		r.Delete("/records/{id}", recordsHandler.Delete)

		// Subjects
		r.Get("/subjects", subjectsHandler.List)
		r.Get("/subjects/{id}", subjectsHandler.Get)
		r.Put("/subjects/{id}", subjectsHandler.Put)
		r.Delete("/subjects/{id}", subjectsHandler.Delete)

		// Events
		r.Get("/events", eventsHandler.Recent)
	})
}
