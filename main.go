package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/warin-th/tutorgrid/agent/agents/orchestrator"
	"github.com/warin-th/tutorgrid/agent/agents/specialist"
	llmx "github.com/warin-th/tutorgrid/agent/llm"
	promptx "github.com/warin-th/tutorgrid/agent/prompt"
	"github.com/warin-th/tutorgrid/agent/router"
	statex "github.com/warin-th/tutorgrid/agent/state"
	configx "github.com/warin-th/tutorgrid/pkg/config"
	_ "github.com/warin-th/tutorgrid/pkg/logger/autoload"
	openrouterx "github.com/warin-th/tutorgrid/pkg/openrouter"
	postgresx "github.com/warin-th/tutorgrid/pkg/postgres"
	"github.com/warin-th/tutorgrid/server"
)

func main() {
	ctx := context.Background()

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	sessionCfg := configx.MustNew[statex.SessionConfig]("SESSION")
	serverCfg := configx.MustNew[server.Config]("SERVER")
	domainsCfg := configx.MustNew[specialist.DomainsConfig]("AGENT")

	store, storeName := buildStore(ctx, *sessionCfg)
	sessions, err := statex.NewManager(store,
		statex.WithIdleExpiry(sessionCfg.IdleExpiry),
		statex.WithMaxTurns(sessionCfg.MaxTurns),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build session manager")
	}

	enabled := domainsCfg.Enabled()
	registry, err := specialist.NewRegistry(ctx, *llmCfg, enabled)
	if err != nil {
		log.Fatal().Err(err).Msg("build specialist registry")
	}

	routerModelCfg := llmCfg.OpenRouterForRouter()
	routerModel, err := routerModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("build router model")
	}

	prompts := promptx.LoadPromptSet()
	rt, err := router.New(ctx, routerModel, prompts.Router, enabled)
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	orch, err := orchestrator.New(sessions, rt, registry, orchestrator.Config{
		ContextTurns: sessionCfg.ContextTurns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	// Best-effort credentials probe. A transient failure here should not stop
	// the service from booting; real outages surface per request anyway.
	if client := openrouterx.NewClient(routerModelCfg); client != nil {
		if err := openrouterx.VerifyAccess(ctx, client); err != nil {
			log.Warn().Err(err).Msg("openrouter access check failed")
		}
	}

	h := server.NewHandler(orch, sessions, registry, storeName)
	srv := server.New(*serverCfg, h)

	log.Info().
		Int("port", serverCfg.Port).
		Str("model", llmCfg.Model).
		Str("store", storeName).
		Int("specialists", len(registry.Agents())).
		Msg("tutoring service starting")

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("tutoring service stopped")
}

// buildStore picks the session backend. "auto" prefers whichever external
// store is configured and only falls back to process memory when neither is.
func buildStore(ctx context.Context, cfg statex.SessionConfig) (statex.Store, string) {
	upstashCfg, upstashErr := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	pgCfg := configx.MustNew[postgresx.Config]("POSTGRES")

	backend := strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if backend == "" || backend == "auto" {
		switch {
		case upstashErr == nil:
			backend = "upstash"
		case pgCfg.Enabled():
			backend = "postgres"
		default:
			backend = "memory"
		}
	}

	switch backend {
	case "upstash":
		if upstashErr != nil {
			log.Fatal().Err(upstashErr).Msg("load upstash redis config")
		}
		store, err := statex.NewUpstashRedisStore(*upstashCfg, statex.WithTTL(cfg.IdleExpiry))
		if err != nil {
			log.Fatal().Err(err).Msg("build upstash session store")
		}
		return store, backend
	case "postgres":
		db, err := postgresx.Connect(ctx, *pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		store, err := statex.NewPostgresStore(db, statex.WithPostgresTTL(cfg.IdleExpiry))
		if err != nil {
			log.Fatal().Err(err).Msg("build postgres session store")
		}
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate session table")
		}
		return store, backend
	case "memory":
		log.Warn().Msg("session store: in-memory; sessions will not survive a restart")
		return statex.NewMemoryStore(statex.WithMemoryTTL(cfg.IdleExpiry)), backend
	default:
		log.Fatal().Str("backend", backend).Msg("unknown session store backend")
		return nil, backend
	}
}
