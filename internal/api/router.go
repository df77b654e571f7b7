package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "flow-ai/chatsync/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates and configures a new chi router with all the application's routes.
func NewRouter(chatHandler *ChatHandler, uploadHandler *UploadHandler, surfaceHandler *SurfaceHandler) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Public Routes ---
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// Liveness and readiness probe.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// --- API Version 1 Routes ---
	r.Route("/api/v1", func(r chi.Router) {

		// Standard JSON routes get a request timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// --- Conversations ---
			r.Post("/conversations", chatHandler.CreateConversation)
			r.Get("/conversations/{conversationID}/messages", chatHandler.GetMessages)

			// --- Messages ---
			r.Get("/messages/{messageID}/versions", chatHandler.GetVersions)
			r.Post("/messages/{messageID}/edit", chatHandler.EditMessage)
			r.Patch("/messages/{messageID}", chatHandler.UpdateMessage)
			r.Delete("/messages/{messageID}", chatHandler.DeleteMessage)

			// --- Indexing ---
			r.Get("/indexing/jobs/{jobID}", uploadHandler.GetIndexingJob)

			// --- Surfaces ---
			r.Post("/surfaces/detect", surfaceHandler.Detect)
		})

		// Streaming and bulk transfer routes must NOT have a timeout: they hold
		// the connection open for as long as the body takes.
		r.Group(func(r chi.Router) {
			r.Post("/chat", chatHandler.HandleChat)

			r.Post("/uploads", uploadHandler.UploadFile)
			r.Post("/uploads/multipart", uploadHandler.InitiateMultipart)
			r.Put("/uploads/multipart/{uploadID}/parts/{partNumber}", uploadHandler.UploadPart)
			r.Post("/uploads/multipart/{uploadID}/complete", uploadHandler.CompleteMultipart)
			r.Delete("/uploads/multipart/{uploadID}", uploadHandler.AbortMultipart)
			r.Get("/files/*", uploadHandler.ServeFile)

			r.Post("/indexing/jobs", uploadHandler.EnqueueIndexing)
		})
	})

	return r
}
