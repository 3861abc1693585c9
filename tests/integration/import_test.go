package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/maligree/corpus-import/internal/content"
	"github.com/maligree/corpus-import/internal/fetch"
	"github.com/maligree/corpus-import/internal/store"
	"github.com/maligree/corpus-import/pkg/runner"
	"github.com/maligree/corpus-import/pkg/scheduler"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	addr := host + ":" + port.Port()
	client := redis.NewClient(&redis.Options{Addr: addr})

	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})

	return client, addr
}

// newContentServer serves one HTML page per unit path, plus one
// configurable failing path.
func newContentServer(t *testing.T, failPath string, failTimes int) *httptest.Server {
	t.Helper()

	failures := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == failPath && failures < failTimes {
			failures++
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		fmt.Fprintf(w, "<h1>Unit %s</h1><p>Text of %s.</p>", parts[len(parts)-1], r.URL.Path)
	}))
	t.Cleanup(server.Close)

	return server
}

// TestFullImportFlow exercises the complete pipeline: HTTP fetch →
// parse → Redis persist, orchestrated by the scheduler.
func TestFullImportFlow(t *testing.T) {
	redisClient, redisAddr := setupRedis(t)
	server := newContentServer(t, "", 0)

	ctx := context.Background()
	logger := zerolog.Nop()

	fetcher, err := fetch.New(fetch.DefaultConfig(server.URL), logger)
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	st, err := store.New(ctx, store.Config{
		Backend:        store.BackendRedis,
		RedisAddr:      redisAddr,
		RedisKeyPrefix: "it",
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	cfg := scheduler.DefaultConfig()
	cfg.InterRequestDelay = 5 * time.Millisecond
	cfg.RetryDelay = 10 * time.Millisecond

	sched, err := scheduler.New(cfg, runner.Collaborators{
		Fetcher:   fetcher,
		Parser:    content.NewParser(),
		Persister: st,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	job := scheduler.JobDescription{
		Collections: []scheduler.Collection{
			{
				ID:   "c1",
				Path: "corpus/one",
				Groups: []scheduler.Group{
					{ID: "g1", UnitCount: 3},
					{ID: "g2", UnitCount: 2},
				},
			},
			{
				ID:   "c2",
				Path: "corpus/two",
				Groups: []scheduler.Group{
					{ID: "g1", UnitCount: 2},
				},
			},
		},
	}

	report, err := sched.Run(ctx, job)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Failures) != 0 {
		t.Fatalf("Failures = %d, want 0: %+v", len(report.Failures), report.Failures)
	}
	if report.Final.SucceededUnits != 7 {
		t.Errorf("SucceededUnits = %d, want 7", report.Final.SucceededUnits)
	}

	// Every unit must be readable back from Redis under its ref key.
	for _, collection := range report.Collections {
		for _, group := range collection.Groups {
			for _, unit := range group.Units {
				exists, err := redisClient.Exists(ctx, unit.Ref).Result()
				if err != nil {
					t.Fatalf("Exists(%s) error = %v", unit.Ref, err)
				}
				if exists != 1 {
					t.Errorf("key %s not found in redis", unit.Ref)
				}
			}
		}
	}
}

// TestImportRetriesTransientFaults verifies a unit that fails on the
// first fetch succeeds on retry and still lands in the store.
func TestImportRetriesTransientFaults(t *testing.T) {
	redisClient, redisAddr := setupRedis(t)
	server := newContentServer(t, "/corpus/one/g1/2", 1)

	ctx := context.Background()
	logger := zerolog.Nop()

	fetcher, err := fetch.New(fetch.DefaultConfig(server.URL), logger)
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	st, err := store.NewRedisStore(ctx, redisAddr, "retry", logger)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	cfg := scheduler.DefaultConfig()
	cfg.InterRequestDelay = 0
	cfg.MaxRetries = 2
	cfg.RetryDelay = 10 * time.Millisecond

	sched, err := scheduler.New(cfg, runner.Collaborators{
		Fetcher:   fetcher,
		Parser:    content.NewParser(),
		Persister: st,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	job := scheduler.JobDescription{
		Collections: []scheduler.Collection{
			{
				ID:     "c1",
				Path:   "corpus/one",
				Groups: []scheduler.Group{{ID: "g1", UnitCount: 3}},
			},
		},
	}

	report, err := sched.Run(ctx, job)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Failures) != 0 {
		t.Fatalf("Failures = %d, want 0: %+v", len(report.Failures), report.Failures)
	}

	units := report.Collections[0].Groups[0].Units
	if len(units) != 3 {
		t.Fatalf("len(Units) = %d, want 3", len(units))
	}
	if units[1].Attempts != 2 {
		t.Errorf("unit 2 Attempts = %d, want 2", units[1].Attempts)
	}

	unit, err := st.GetUnit(ctx, "c1", "g1", 2)
	if err != nil {
		t.Fatalf("GetUnit() error = %v", err)
	}
	if unit.Title == "" {
		t.Error("persisted unit has empty title")
	}

	keys, err := redisClient.Keys(ctx, "retry:*").Result()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("len(keys) = %d, want 3", len(keys))
	}
}
