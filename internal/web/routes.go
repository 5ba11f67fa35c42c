package web

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/web/handlers"
	"github.com/campusmess/mess-server/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	authHandler := handlers.NewAuthHandler(s.deps.Users, s.sessionManager, s.deps.Embedder)
	menuHandler := handlers.NewMenuHandler(s.deps.Menu)
	dailyMenuHandler := handlers.NewDailyMenuHandler(s.deps.DailyMenus, s.deps.Menu)
	weeklyMenuHandler := handlers.NewWeeklyMenuHandler(s.deps.WeeklyMenus, s.deps.Menu)
	trxHandler := handlers.NewTransactionHandler(s.deps.Transactions)
	analyticsHandler := handlers.NewAnalyticsHandler(s.deps.Analytics)
	scanHandler := handlers.NewScanHandler(s.deps.Orchestrator)

	loadUser := func(ctx context.Context, session *middleware.Session) (*database.User, error) {
		return s.deps.Users.GetUserByID(ctx, session.UserID)
	}

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// All other routes require authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager, loadUser))

			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/face", authHandler.RegisterFace)

			// Menu (reads for everyone)
			r.Get("/menu", menuHandler.List)
			r.Get("/menu/{id}", menuHandler.Get)

			// Daily menus (reads for everyone)
			r.Get("/daily-menu", dailyMenuHandler.List)
			r.Get("/daily-menu/{date}", dailyMenuHandler.Get)

			// Weekly recurring menus (reads for everyone)
			r.Get("/weekly-menu", weeklyMenuHandler.List)
			r.Get("/weekly-menu/{day}", weeklyMenuHandler.Get)

			// Transactions
			r.Post("/transactions", trxHandler.Create)
			r.Get("/transactions", trxHandler.List)
			r.Get("/transactions/{id}", trxHandler.Get)

			// Scan
			r.Post("/scan", scanHandler.Scan)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())

				// Menu management
				r.Post("/menu", menuHandler.Create)
				r.Put("/menu/{id}", menuHandler.Update)
				r.Delete("/menu/{id}", menuHandler.Delete)

				// Daily menu management
				r.Put("/daily-menu", dailyMenuHandler.Set)
				r.Delete("/daily-menu/{date}", dailyMenuHandler.Delete)

				// Weekly menu management
				r.Put("/weekly-menu", weeklyMenuHandler.Set)
				r.Delete("/weekly-menu/{day}", weeklyMenuHandler.Delete)

				// Analytics
				r.Get("/analytics/overview", analyticsHandler.Overview)
				r.Get("/analytics/popular-items", analyticsHandler.PopularItems)
				r.Get("/analytics/revenue", analyticsHandler.Revenue)
				r.Get("/analytics/top-users", analyticsHandler.TopUsers)
			})
		})
	})
}
