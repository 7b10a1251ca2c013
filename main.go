package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dealkernel/kernel/pkg/artifacts"
	"github.com/dealkernel/kernel/pkg/config"
	"github.com/dealkernel/kernel/pkg/gate"
	"github.com/dealkernel/kernel/pkg/kernel"
	"github.com/dealkernel/kernel/pkg/proofpack"
	"github.com/dealkernel/kernel/pkg/server"
	"github.com/dealkernel/kernel/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	client, err := store.NewClient(cfg)
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.MigrateUp(ctx); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	deals := store.NewDealRepository(client)
	actors := store.NewActorRepository(client)
	roles := store.NewRoleRepository(client)
	authRules := store.NewAuthorityRuleRepository(client)
	events := store.NewEventRepository(client)
	materials := store.NewMaterialRepository(client)
	artifactRepo := store.NewArtifactRepository(client)
	drafts := store.NewDraftRepository(client)

	if _, err := roles.EnsureSeeded(ctx); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}

	evaluator := gate.NewEvaluator(authRules, actors, materials)
	appender := kernel.NewEventAppender(client, deals, events, evaluator)
	draftSandbox := kernel.NewDraftSandbox(client, deals, events, drafts, authRules, evaluator)
	snapshots := kernel.NewSnapshotService(deals, events, authRules, materials, evaluator)
	explainReplay := kernel.NewExplainReplay(events, materials, evaluator)

	artifactStore := artifacts.NewStore(cfg.ArtifactRoot, artifactRepo)
	proofPack := proofpack.NewExporter(snapshots, explainReplay, events, materials, artifactRepo)

	httpLogger := log.New(log.Writer(), "[server] ", log.LstdFlags)
	srv := server.New(server.Deps{
		Client:        client,
		Deals:         deals,
		Actors:        actors,
		Roles:         roles,
		AuthRules:     authRules,
		Events:        events,
		Materials:     materials,
		ArtifactRepo:  artifactRepo,
		Evaluator:     evaluator,
		Appender:      appender,
		Draft:         draftSandbox,
		Snapshots:     snapshots,
		ExplainReplay: explainReplay,
		ArtifactStore: artifactStore,
		ProofPack:     proofPack,
		Logger:        httpLogger,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Routes(),
	}

	go func() {
		log.Printf("deal lifecycle kernel listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down deal lifecycle kernel")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}

	log.Println("deal lifecycle kernel stopped")
}
