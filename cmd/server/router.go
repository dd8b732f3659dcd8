package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/taskhub/taskhub-api/internal/api"
	apiMiddleware "github.com/taskhub/taskhub-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(
		app.userService,
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.blacklist,
		app.resetTokens,
		app.notifier,
		app.config.Auth,
	)
	taskHandler := api.NewTaskHandler(app.taskService, app.userStore)
	userHandler := api.NewUserHandler(app.userService, app.scheme)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/signup/", authHandler.Signup)
		r.Post("/login/", authHandler.Login)
		r.Post("/token/refresh/", authHandler.RefreshToken)
		r.Post("/password-reset/", authHandler.RequestPasswordReset)
		r.Post("/password-reset/confirm/", authHandler.ConfirmPasswordReset)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/logout/", authHandler.Logout)
			r.Get("/me/", authHandler.Me)
			r.Put("/profile/", authHandler.UpdateProfile)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskHandler.Create)
				r.Get("/", taskHandler.List)
				r.Get("/{id}/", taskHandler.Get)
				r.Put("/{id}/", taskHandler.Update)
				r.Delete("/{id}/", taskHandler.Delete)
				r.Patch("/{id}/status/", taskHandler.UpdateStatus)
				r.Post("/{id}/start/", taskHandler.Start)
				r.Post("/{id}/complete/", taskHandler.Complete)
			})

			r.Get("/my-tasks/", taskHandler.ListMine)
			r.Get("/all-tasks/", taskHandler.ListAll)
			r.Get("/task-statistics/", taskHandler.Statistics)
			r.Post("/update-overdue-tasks/", taskHandler.Sweep)
			r.Get("/available-users/", userHandler.AvailableUsers)

			r.Route("/admin/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Post("/create/", userHandler.Create)
				r.Get("/{id}/", userHandler.Get)
				r.Put("/{id}/", userHandler.Update)
				r.Delete("/{id}/", userHandler.Delete)
				r.Post("/{id}/promote/", userHandler.Promote)
				r.Post("/{id}/demote/", userHandler.Demote)
			})
		})
	})

	// Health check endpoint
	r.Get("/health/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
