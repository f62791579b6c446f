// agora/handlers/router.go

package handlers

import (
	"net/http"

	"agora/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func SetupRouter(app App) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(NewStructuredLogger(app.Logger()))
	mux.Use(middleware.Recoverer)

	mux.Get("/health", MakeHandler(app, func(w http.ResponseWriter, r *http.Request, app App) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": config.AppVersion}, app)
	}))

	mux.Route("/auth", func(r chi.Router) {
		r.Post("/register", MakeHandler(app, HandleRegister))
		r.Post("/login", MakeHandler(app, HandleLogin))
		r.Group(func(r chi.Router) {
			r.Use(RequireUser(app))
			r.Post("/logout", MakeHandler(app, HandleLogout))
			r.Get("/me", MakeHandler(app, HandleMe))
		})
	})

	mux.Route("/forum", func(r chi.Router) {
		// Reads are public.
		r.Get("/categories", MakeHandler(app, HandleListCategories))
		r.Get("/categories/{categoryID}", MakeHandler(app, HandleGetCategory))
		r.Get("/categories/{categoryID}/posts", MakeHandler(app, HandleCategoryPosts))
		r.Get("/posts/{postID}", MakeHandler(app, HandleGetPost))
		r.Get("/search", MakeHandler(app, HandleSearch))

		// Writes require an account.
		r.Group(func(r chi.Router) {
			r.Use(RequireUser(app))
			r.Post("/posts", MakeHandler(app, HandleCreatePost))
			r.Put("/posts/{postID}", MakeHandler(app, HandleUpdatePost))
			r.Delete("/posts/{postID}", MakeHandler(app, HandleDeletePost))
			r.Post("/posts/{postID}/vote", MakeHandler(app, HandleVotePost))
			r.Post("/posts/{postID}/comments", MakeHandler(app, HandleCreateComment))
			r.Put("/comments/{commentID}", MakeHandler(app, HandleUpdateComment))
			r.Delete("/comments/{commentID}", MakeHandler(app, HandleDeleteComment))
			r.Post("/comments/{commentID}/vote", MakeHandler(app, HandleVoteComment))

			r.Group(func(r chi.Router) {
				r.Use(RequireModerator(app))
				r.Post("/posts/{postID}/pin", MakeHandler(app, HandlePinPost))
				r.Delete("/posts/{postID}/permanent", MakeHandler(app, HandlePermanentDeletePost))
			})
		})
	})

	mux.Route("/user", func(r chi.Router) {
		r.Get("/profile/{username}", MakeHandler(app, HandlePublicProfile))
		r.Group(func(r chi.Router) {
			r.Use(RequireUser(app))
			r.Get("/profile", MakeHandler(app, HandleGetProfile))
			r.Put("/profile", MakeHandler(app, HandleUpdateProfile))
			r.Get("/posts", MakeHandler(app, HandleMyPosts))
			r.Get("/comments", MakeHandler(app, HandleMyComments))
		})
	})

	mux.Route("/admin", func(r chi.Router) {
		r.Use(RequireUser(app))
		r.Use(RequireModerator(app))

		r.Put("/users/{userID}/ban", MakeHandler(app, HandleBanUser))
		r.Put("/users/{userID}/unban", MakeHandler(app, HandleUnbanUser))

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(app))
			r.Get("/stats", MakeHandler(app, HandleStats))
			r.Get("/users", MakeHandler(app, HandleListUsers))
			r.Put("/users/{userID}/role", MakeHandler(app, HandleUpdateRole))
			r.Delete("/users/{userID}", MakeHandler(app, HandleDeleteUser))
			r.Post("/categories", MakeHandler(app, HandleCreateCategory))
			r.Put("/categories/{categoryID}", MakeHandler(app, HandleUpdateCategory))
			r.Delete("/categories/{categoryID}", MakeHandler(app, HandleDeleteCategory))
		})
	})

	return mux
}
