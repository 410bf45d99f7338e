package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/folnerty/mini-app/internal/app"
	"github.com/folnerty/mini-app/internal/config"
	"github.com/folnerty/mini-app/internal/domain"
	filestore "github.com/folnerty/mini-app/internal/infra/file"
	"github.com/folnerty/mini-app/internal/infra/memory"
	pgbank "github.com/folnerty/mini-app/internal/infra/postgres"
	redisstore "github.com/folnerty/mini-app/internal/infra/redis"
	remotestore "github.com/folnerty/mini-app/internal/infra/remote"
	"github.com/folnerty/mini-app/internal/logging"
	transport "github.com/folnerty/mini-app/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the mini-app backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	appName := cfg.App.Name
	if appName == "" {
		appName = "mini-app"
	}
	log := logging.New(appName, cfg.App.Env)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Local store: the last-known-good mirror of shared state. File-backed
	// when a data dir is configured, otherwise process-local memory.
	var local app.KeyValueStore = memory.NewKVStore()
	if cfg.Game.DataDir != "" {
		fileStore, err := filestore.NewKVStore(cfg.Game.DataDir)
		if err != nil {
			return err
		}
		local = fileStore
	}

	// Shared store: the platform bridge analog. Redis when configured,
	// else the hosted JSON store, else the local store itself.
	var bridge app.KeyValueStore = local
	switch {
	case cfg.Redis.Addr != "":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		bridge = redisstore.NewKVStore(client, 0)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis shared store")
	case cfg.Remote.URL != "":
		timeout := config.TTLDuration(cfg.Remote.Timeout, 10*time.Second)
		bridge = remotestore.NewKVStore(cfg.Remote.URL, cfg.Remote.APIKey, timeout)
		log.Info().Str("url", cfg.Remote.URL).Msg("using remote shared store")
	default:
		log.Info().Msg("no shared store configured, leaderboard is local-only")
	}

	var bank app.QuestionBank = memory.NewStaticBank(sampleQuestions())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		questionTTL := config.TTLDuration(cfg.Game.QuestionTTL, 10*time.Minute)
		bank = memory.NewQuestionBank(pgbank.NewQuestionLoader(pool), questionTTL)
	}

	aggregator := app.NewAggregator(bridge, local, bank, log)
	reconciler := app.NewReconciler(bridge, local, cfg.Leaderboard.Limit, log)
	service := app.NewGameService(bank, aggregator, reconciler, nil, cfg.Game.RoundSize, log)
	handler := transport.NewHandler(service, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting mini-app backend")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions provides a built-in science set; configure Postgres to
// serve a full bank in production.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Category: "Physics", Prompt: "What force keeps planets in orbit around the Sun?", Options: []string{"Magnetism", "Gravity", "Friction", "Inertia"}, CorrectIndex: 1, Explanation: "Gravity pulls planets toward the Sun, bending their paths into orbits.", Difficulty: "easy"},
		{ID: 2, Category: "Physics", Prompt: "What is the speed of light in vacuum, approximately?", Options: []string{"300,000 km/s", "150,000 km/s", "1,000,000 km/s", "30,000 km/s"}, CorrectIndex: 0, Explanation: "Light travels at about 299,792 kilometers per second in vacuum.", Difficulty: "easy"},
		{ID: 3, Category: "Physics", Prompt: "Which particle carries a negative charge?", Options: []string{"Proton", "Neutron", "Electron", "Photon"}, CorrectIndex: 2, Explanation: "Electrons carry the elementary negative charge.", Difficulty: "easy"},
		{ID: 4, Category: "Chemistry", Prompt: "What is the chemical symbol for gold?", Options: []string{"Go", "Gd", "Au", "Ag"}, CorrectIndex: 2, Explanation: "Au comes from the Latin aurum.", Difficulty: "easy"},
		{ID: 5, Category: "Chemistry", Prompt: "How many elements are in water's molecular formula?", Options: []string{"One", "Two", "Three", "Four"}, CorrectIndex: 1, Explanation: "H2O contains hydrogen and oxygen.", Difficulty: "easy"},
		{ID: 6, Category: "Chemistry", Prompt: "Which gas makes up most of Earth's atmosphere?", Options: []string{"Oxygen", "Carbon dioxide", "Nitrogen", "Argon"}, CorrectIndex: 2, Explanation: "Nitrogen is about 78% of the atmosphere.", Difficulty: "medium"},
		{ID: 7, Category: "Biology", Prompt: "What organelle is known as the powerhouse of the cell?", Options: []string{"Nucleus", "Ribosome", "Mitochondrion", "Golgi apparatus"}, CorrectIndex: 2, Explanation: "Mitochondria produce most of the cell's ATP.", Difficulty: "easy"},
		{ID: 8, Category: "Biology", Prompt: "Which molecule stores genetic information?", Options: []string{"Protein", "DNA", "Lipid", "Glucose"}, CorrectIndex: 1, Explanation: "DNA encodes the hereditary instructions of living organisms.", Difficulty: "easy"},
		{ID: 9, Category: "Biology", Prompt: "What process do plants use to convert sunlight into energy?", Options: []string{"Respiration", "Fermentation", "Photosynthesis", "Transpiration"}, CorrectIndex: 2, Explanation: "Photosynthesis builds sugars from CO2 and water using light.", Difficulty: "easy"},
		{ID: 10, Category: "Astronomy", Prompt: "Which planet is the largest in the Solar System?", Options: []string{"Saturn", "Neptune", "Jupiter", "Earth"}, CorrectIndex: 2, Explanation: "Jupiter's mass exceeds that of all other planets combined.", Difficulty: "easy"},
		{ID: 11, Category: "Astronomy", Prompt: "What is a light-year a measure of?", Options: []string{"Time", "Distance", "Brightness", "Speed"}, CorrectIndex: 1, Explanation: "A light-year is the distance light travels in one year.", Difficulty: "medium"},
		{ID: 12, Category: "Astronomy", Prompt: "What object has gravity so strong that light cannot escape?", Options: []string{"Neutron star", "Black hole", "White dwarf", "Quasar"}, CorrectIndex: 1, Explanation: "Inside a black hole's event horizon nothing escapes, not even light.", Difficulty: "medium"},
	}
}
