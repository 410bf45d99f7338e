package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/folnerty/mini-app/internal/app"
	"github.com/folnerty/mini-app/internal/domain"
	"github.com/folnerty/mini-app/internal/infra/memory"
	pgbank "github.com/folnerty/mini-app/internal/infra/postgres"
	pgmigrations "github.com/folnerty/mini-app/internal/infra/postgres/migrations"
	redisstore "github.com/folnerty/mini-app/internal/infra/redis"
)

func TestRoundLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	bank := memory.NewQuestionBank(pgbank.NewQuestionLoader(pool), 5*time.Minute)
	bridge := redisstore.NewKVStore(redisClient, 0)
	local := memory.NewKVStore()

	agg := app.NewAggregator(bridge, local, bank, zerolog.Nop())
	rec := app.NewReconciler(bridge, local, 0, zerolog.Nop())
	service := app.NewGameService(bank, agg, rec, rand.New(rand.NewSource(1)), 10, zerolog.Nop())

	user := &domain.Identity{ID: 1, FirstName: "Ada", LastName: "Lovelace"}
	questions, err := service.StartRound(ctx, user)
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	if len(questions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(questions))
	}

	answers := make([]int, len(questions))
	spent := make([]int, len(questions))
	for i := range questions {
		answers[i] = questions[i].CorrectIndex
		spent[i] = 30
	}
	outcome, err := service.FinishRound(ctx, user, domain.RoundResult{
		Questions: questions,
		Answers:   answers,
		TimeSpent: spent,
	})
	if err != nil {
		t.Fatalf("finish round: %v", err)
	}
	if outcome.Score != 1050 || outcome.Rank != 1 {
		t.Fatalf("expected score 1050 rank 1, got score=%d rank=%d", outcome.Score, outcome.Rank)
	}

	// stats and leaderboard are durable in the shared store
	stats := service.Stats(ctx, user)
	if stats.TotalPoints != 1050 {
		t.Fatalf("expected persisted 1050 points, got %d", stats.TotalPoints)
	}
	board := service.Leaderboard(ctx)
	if len(board) != 1 || board[0].ID != "vk_1" {
		t.Fatalf("expected vk_1 on the shared board, got %+v", board)
	}
}

func sampleQuestions() []domain.Question {
	questions := make([]domain.Question, 12)
	for i := range questions {
		questions[i] = domain.Question{
			ID:           i + 1,
			Category:     "Physics",
			Prompt:       fmt.Sprintf("Question %d", i+1),
			Options:      []string{"right", "wrong", "also wrong"},
			CorrectIndex: 0,
			Difficulty:   "easy",
		}
	}
	return questions
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			t.Fatalf("marshal question: %v", err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO questions (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
			q.ID, string(data)); err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
