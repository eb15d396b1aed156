package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/rooms", apiHandler.ListRoomsHandler)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Post("/rooms", apiHandler.CreateRoomHandler)
			r.Delete("/rooms/{roomID}", apiHandler.DeleteRoomHandler)

			r.Get("/rooms/{roomID}/questions", apiHandler.ListQuestionsHandler)
			r.Post("/rooms/{roomID}/questions", apiHandler.CreateQuestionHandler)

			r.Post("/rooms/{roomID}/audio", apiHandler.UploadAudioHandler)
		})
	})

	return r
}
