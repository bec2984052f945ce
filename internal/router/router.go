package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskhub/internal/config"
	"taskhub/internal/handler"
	"taskhub/internal/middleware"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Project      *handler.ProjectHandler
	Task         *handler.TaskHandler
	Comment      *handler.CommentHandler
	Document     *handler.DocumentHandler
	Notification *handler.NotificationHandler
	Dashboard    *handler.DashboardHandler
	Activity     *handler.ActivityHandler
	WS           http.HandlerFunc
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/ws", h.WS)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Use(middleware.Timeout(cfg.RequestTimeout))
			auth.Post("/login", h.Auth.Login)
			auth.Post("/two-factor", h.Auth.VerifyTwoFactor)
			auth.Post("/register", h.Auth.Register)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.Timeout(cfg.RequestTimeout))
			protected.Use(authMiddleware.RequireAuth)

			protected.Route("/users", func(users chi.Router) {
				users.Get("/me", h.User.Me)
				users.Put("/me", h.User.UpdateProfile)
				users.Put("/me/two-factor", h.User.SetTwoFactor)
				users.With(authMiddleware.RequireRoles("admin")).Get("/", h.User.List)
				users.Get("/{id}", h.User.Get)
				users.With(authMiddleware.RequireRoles("admin")).Delete("/{id}", h.User.Delete)
			})

			protected.Route("/projects", func(projects chi.Router) {
				projects.Post("/", h.Project.Create)
				projects.Get("/", h.Project.List)
				projects.Get("/{id}", h.Project.Get)
				projects.Put("/{id}", h.Project.Update)
				projects.Put("/{id}/archive", h.Project.Archive)
				projects.With(authMiddleware.RequireRoles("admin")).Delete("/{id}", h.Project.Delete)
				projects.Post("/{id}/members", h.Project.AddMember)
				projects.Delete("/{id}/members/{user_id}", h.Project.RemoveMember)
			})

			protected.Route("/tasks", func(tasks chi.Router) {
				tasks.Post("/", h.Task.Create)
				tasks.Get("/", h.Task.List)
				tasks.Get("/{id}", h.Task.Get)
				tasks.Put("/{id}", h.Task.Update)
				tasks.Delete("/{id}", h.Task.Delete)

				tasks.Post("/{id}/comments", h.Comment.Create)
				tasks.Get("/{id}/comments", h.Comment.ListForTask)

				tasks.Get("/{id}/documents", h.Document.ListForTask)
			})

			protected.Put("/comments/{comment_id}", h.Comment.Update)
			protected.Delete("/comments/{comment_id}", h.Comment.Delete)

			protected.Get("/documents/{document_id}/thumbnail", h.Document.Thumbnail)
			protected.Delete("/documents/{document_id}", h.Document.Delete)

			protected.Route("/notifications", func(notifications chi.Router) {
				notifications.Get("/", h.Notification.List)
				notifications.Get("/unread-count", h.Notification.UnreadCount)
				notifications.Put("/{id}/read", h.Notification.MarkRead)
				notifications.Put("/read-all", h.Notification.MarkAllRead)
			})

			protected.Route("/dashboard", func(dashboard chi.Router) {
				dashboard.Get("/overview", h.Dashboard.Overview)
				dashboard.Get("/charts", h.Dashboard.Charts)
				dashboard.Get("/calendar", h.Dashboard.Calendar)
				dashboard.Get("/workload", h.Dashboard.Workload)
			})

			protected.With(authMiddleware.RequireRoles("admin")).Get("/activity", h.Activity.List)
		})

		// Transfers stream; the buffering timeout handler would break them.
		api.Group(func(transfers chi.Router) {
			transfers.Use(middleware.StreamingTimeout(cfg.TransferMaxDuration, cfg.TransferIdleTimeout))
			transfers.Use(authMiddleware.RequireAuth)
			transfers.Post("/tasks/{id}/documents", h.Document.Upload)
			transfers.Get("/documents/{document_id}/download", h.Document.Download)
		})
	})

	return r
}
