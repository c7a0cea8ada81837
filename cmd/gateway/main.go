package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	api "github.com/oscegrade/oscegrade/internal/api/http"
	"github.com/oscegrade/oscegrade/internal/auth"
	"github.com/oscegrade/oscegrade/internal/config"
	"github.com/oscegrade/oscegrade/internal/db"
	"github.com/oscegrade/oscegrade/internal/embed"
	"github.com/oscegrade/oscegrade/internal/eval"
	"github.com/oscegrade/oscegrade/internal/grading"
	"github.com/oscegrade/oscegrade/internal/rubric"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	var rubricStore rubric.Store = rubric.NewSQLStore(dbh)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rubricStore = rubric.NewCachedStore(rubricStore, rdb, cfg.RubricTTL)
		log.WithField("addr", cfg.RedisAddr).Info("rubric cache enabled")
	}
	gradingStore := grading.NewSQLStore(dbh)

	// --- Grading pipeline ---
	var embedder eval.Embedder
	if cfg.EmbedBaseURL != "" {
		embedder = embed.NewClient(cfg.EmbedBaseURL, cfg.EmbedModel, log)
		log.WithField("base_url", cfg.EmbedBaseURL).Info("semantic backend configured")
	}
	engine := eval.NewEngine(embedder, log)
	gradingSvc := grading.NewService(rubricStore, gradingStore, engine, log)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.JWTSecret, cfg.AdminUser, cfg.AdminPassHash, cfg.GuestExaminer)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", api.HealthHandler())
	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc))
	}

	// Protected API (JWT → role in context)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Rubric authoring (admin)
		pr.With(auth.RequireRole("admin")).
			Post("/rubrics", api.CreateRubricHandler(rubricStore))
		pr.With(auth.RequireRole("admin")).
			Put("/rubrics/{rubricID}", api.UpdateRubricHandler(rubricStore))
		pr.With(auth.RequireRole("admin")).
			Post("/rubrics/{rubricID}/approve", api.ApproveRubricHandler(rubricStore))
		pr.With(auth.RequireRole("admin")).
			Delete("/rubrics/{rubricID}", api.DeleteRubricHandler(rubricStore))
		pr.With(auth.RequireRole("admin")).
			Post("/rubrics/validate", api.ValidateRubricHandler())

		// Rubric read (examiner or admin)
		pr.With(auth.RequireRole("examiner", "admin")).
			Get("/rubrics/{rubricID}", api.GetRubricHandler(rubricStore))
		pr.With(auth.RequireRole("examiner", "admin")).
			Get("/rubrics/{rubricID}/versions", api.ListRubricVersionsHandler(rubricStore))

		// Grading flow
		pr.With(auth.RequireRole("examiner", "admin")).
			Post("/gradings", api.GradeHandler(gradingSvc))
		pr.With(auth.RequireRole("examiner", "admin")).
			Get("/gradings/{gradingID}", api.GetGradingHandler(gradingStore))
		pr.With(auth.RequireRole("examiner", "admin")).
			Get("/transcripts/{transcriptID}/gradings", api.ListGradingsHandler(gradingStore))
		pr.With(auth.RequireRole("examiner", "admin")).
			Post("/transcripts/segment", api.SegmentTranscriptHandler())

		// Component probes for rubric authoring
		pr.With(auth.RequireRole("admin")).
			Post("/evaluate/structure", api.EvaluateStructureHandler(rubricStore, engine))
		pr.With(auth.RequireRole("admin")).
			Post("/evaluate/questions", api.EvaluateQuestionsHandler(rubricStore, engine))
		pr.With(auth.RequireRole("admin")).
			Post("/evaluate/reasoning", api.EvaluateReasoningHandler(rubricStore, engine))
		pr.With(auth.RequireRole("admin")).
			Post("/evaluate/summary", api.EvaluateSummaryHandler(rubricStore, engine))
	})

	log.WithField("addr", cfg.HTTPAddr).Info("gateway listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("server: %v", err)
	}
}
