//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/samajportal/apiserver/config"
	"github.com/samajportal/apiserver/internal/db"
	"github.com/samajportal/apiserver/internal/logging"
	"github.com/samajportal/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

// TestVerificationLifecycle walks a member from sign-up through a
// rejection and checks that the gate and inbox follow each step.
func TestVerificationLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano() % 1_000_000_000

	adminToken, adminID := register(t, baseURL, fmt.Sprintf("7%09d", suffix), "Admin Member")
	if err := promoteToAdmin(adminID); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	memberToken, memberID := register(t, baseURL, fmt.Sprintf("8%09d", suffix), "Ramesh Sharma")

	status, denied := doJSON(t, http.MethodGet, baseURL+"/donations", memberToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("donations before verification: status %d", status)
	}
	if denied["target"] != "register" {
		t.Fatalf("unexpected denial target: %v", denied["target"])
	}

	status, body := doJSON(t, http.MethodPut, baseURL+"/profile/verification", memberToken, map[string]string{
		"full_name": "Ramesh Sharma",
		"mobile":    fmt.Sprintf("8%09d", suffix),
		"gotra":     "Bharadwaj",
	})
	if status != http.StatusOK {
		t.Fatalf("submit verification: status %d: %v", status, body)
	}
	if body["verification_status"] != "pending" {
		t.Fatalf("expected pending, got %v", body["verification_status"])
	}

	rejectURL := fmt.Sprintf("%s/admin/verifications/%d/reject", baseURL, memberID)
	status, body = doJSON(t, http.MethodPost, rejectURL, adminToken, map[string]string{"reason": "Gotra mismatch"})
	if status != http.StatusOK {
		t.Fatalf("reject: status %d: %v", status, body)
	}
	if body["changed"] != true {
		t.Fatalf("expected reject to change state: %v", body)
	}

	status, body = doJSON(t, http.MethodPost, rejectURL, adminToken, map[string]string{"reason": "Again"})
	if status != http.StatusOK || body["changed"] != false {
		t.Fatalf("second reject should be a no-op: status %d: %v", status, body)
	}

	status, me := doJSON(t, http.MethodGet, baseURL+"/auth/me", memberToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	profile, _ := me["profile"].(map[string]any)
	if profile["verification_status"] != "rejected" || profile["rejection_reason"] != "Gotra mismatch" {
		t.Fatalf("unexpected profile after reject: %v", profile)
	}

	inbox := listNotifications(t, baseURL, memberToken)
	if len(inbox) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(inbox))
	}
	if inbox[0]["body"] != "Gotra mismatch" {
		t.Fatalf("unexpected notification body: %v", inbox[0]["body"])
	}

	status, _ = doJSON(t, http.MethodPost, baseURL+"/auth/logout", memberToken, nil)
	if status != http.StatusNoContent {
		t.Fatalf("logout: status %d", status)
	}
	status, _ = doJSON(t, http.MethodGet, baseURL+"/auth/me", memberToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("revoked token still accepted: status %d", status)
	}
}

func register(t *testing.T, baseURL, mobile, name string) (string, int) {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/auth/register", "", map[string]string{
		"full_name": name,
		"mobile":    mobile,
		"password":  "testpass123!",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d: %v", mobile, status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("missing token in register response")
	}
	sess, _ := body["session"].(map[string]any)
	id, _ := sess["member_id"].(float64)
	if id == 0 {
		t.Fatalf("missing member id in register response")
	}
	return token, int(id)
}

func listNotifications(t *testing.T, baseURL, token string) []map[string]any {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/notifications", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	defer resp.Body.Close()

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	return items
}

func doJSON(t *testing.T, method, url, token string, payload any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s: %v: %s", method, url, err, strings.TrimSpace(string(raw)))
		}
	}
	return resp.StatusCode, out
}

func promoteToAdmin(memberID int) error {
	conn, err := sql.Open("postgres", db.DSN(config.LoadConfig().Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.ExecContext(ctx,
		"INSERT INTO user_roles (member_id, role) VALUES ($1, 'admin') ON CONFLICT DO NOTHING", memberID)
	return err
}

func setTestEnv() {
	_ = os.Setenv("ENV", "test")
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "samaj")
	_ = os.Setenv("DB_PASSWORD", "samaj")
	_ = os.Setenv("DB_NAME", "samaj")
	_ = os.Setenv("DB_SSL", "false")
	_ = os.Setenv("MQ_BACKEND", "none")
	_ = os.Setenv("STORAGE_BACKEND", "minio")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "samaj-gallery")
}

func waitForPostgres(ctx context.Context) error {
	conn, err := sql.Open("postgres", db.DSN(config.LoadConfig().Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.DSN(config.LoadConfig().Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer(ctx context.Context) (*server.Server, error) {
	cfg := config.LoadConfig()
	logger, err := logging.New(cfg.Env, "warn")
	if err != nil {
		return nil, err
	}
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
