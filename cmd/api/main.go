package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/lead-prospector/internal/config"
	"github.com/xavierca1/lead-prospector/internal/infra/ai"
	"github.com/xavierca1/lead-prospector/internal/infra/database"
	"github.com/xavierca1/lead-prospector/internal/infra/http/handlers"
	"github.com/xavierca1/lead-prospector/internal/infra/http/middleware"
	"github.com/xavierca1/lead-prospector/internal/infra/integration/anthropic"
	"github.com/xavierca1/lead-prospector/internal/infra/integration/apollo"
	"github.com/xavierca1/lead-prospector/internal/infra/integration/gemini"
	"github.com/xavierca1/lead-prospector/internal/infra/integration/slack"
	"github.com/xavierca1/lead-prospector/internal/infra/mail"
	"github.com/xavierca1/lead-prospector/internal/infra/notification"
	"github.com/xavierca1/lead-prospector/internal/infra/queue"
	"github.com/xavierca1/lead-prospector/internal/infra/worker"
	"github.com/xavierca1/lead-prospector/internal/usecase"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	for _, missing := range cfg.Validate() {
		log.Printf("⚠️ Missing config: %s", missing)
	}

	ctx := context.Background()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := database.InitSchema(ctx, db); err != nil {
		log.Fatal(err)
	}

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitUser, cfg.RabbitPass, cfg.RabbitHost, cfg.RabbitPort)
	if err != nil {
		log.Fatal(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Repositories
	leadRepo := database.NewLeadRepository(db)
	cacheRepo := database.NewContactCacheRepository(db, cfg.ContactCacheExpiry)

	// 2. Gateways and adapters
	apolloClient := apollo.NewCachedClient(
		apollo.NewClient(cfg.ApolloAPIKey, cfg.ApolloSequenceID, cfg.ApolloBaseURL),
		cacheRepo,
	)
	slackClient := slack.NewClient(cfg.SlackBotToken)
	publisher := notification.NewPublisher(slackClient, cfg.SlackChannelID)
	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
	alertSender := mail.NewAlertSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.AlertTo)

	gateway := buildAIGateway(ctx, cfg)

	// 3. UseCases
	ingestUC := usecase.NewIngestSignalUseCase(leadRepo, apolloClient, gateway, publisher, alertSender)
	interactionUC := usecase.NewHandleInteractionUseCase(leadRepo, gateway, publisher, producer, cfg.RegenerateCap)
	enrollUC := usecase.NewEnrollLeadUseCase(leadRepo, apolloClient, publisher, alertSender)

	// 4. Background workers
	enrollWorker := queue.NewWorker(rabbitMQ.Ch, enrollUC)
	go enrollWorker.Start(queue.QueueName)

	janitor := worker.NewStaleLeadJanitor(db, producer, cfg.EnrollClaimWindow)
	go janitor.Start(ctx)

	// 5. Handlers
	signalHandler := handlers.NewSignalHandler(ingestUC, cfg.WebhookSecret)
	interactionHandler := handlers.NewInteractionHandler(interactionUC, cfg.SlackSigningSecret)
	leadHandler := handlers.NewLeadHandler(leadRepo)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Post("/webhook/reporadar", signalHandler.Handle)
	r.Post("/slack/interactions", interactionHandler.Handle)
	r.Get("/leads/pending", leadHandler.ListPending)
	r.Get("/leads/{identity}", leadHandler.GetLead)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	port := ":" + cfg.Port
	log.Printf("🔥 Lead Prospector running on port %s", port)
	http.ListenAndServe(port, r)
}

// buildAIGateway wires the configured primary provider with the other
// one as fallback when its key is present.
func buildAIGateway(ctx context.Context, cfg *config.Config) *ai.Gateway {
	var anthropicClient, geminiClient ai.Provider

	if cfg.AnthropicAPIKey != "" {
		anthropicClient = anthropic.NewClient(cfg.AnthropicAPIKey)
	}
	if cfg.GeminiAPIKey != "" {
		gc, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Printf("⚠️ Gemini client unavailable: %v", err)
		} else {
			geminiClient = gc
		}
	}

	if cfg.AIProvider == "gemini" {
		return ai.NewGateway(geminiClient, anthropicClient)
	}
	return ai.NewGateway(anthropicClient, geminiClient)
}
