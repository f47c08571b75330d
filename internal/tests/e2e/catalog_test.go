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

	"github.com/crypto-vantro/apiserver/config"
	"github.com/crypto-vantro/apiserver/internal/server"
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

	setServerEnv()

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

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestCatalogLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("owner_%d@example.com", time.Now().UnixNano())
	password := "testpass123!"

	owner, err := signup(t, baseURL, email, password)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if owner.ID == "" || owner.AccessToken == "" || owner.RefreshToken == "" {
		t.Fatalf("incomplete signup response: %+v", owner)
	}
	if owner.AccessToken == owner.RefreshToken {
		t.Fatalf("expected distinct access and refresh tokens")
	}

	if _, err := signup(t, baseURL, email, "another-password"); err == nil {
		t.Fatalf("expected duplicate signup to fail")
	}

	signinResp, err := signin(t, baseURL, email, password)
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if signinResp.ID != owner.ID {
		t.Fatalf("signin returned wrong id: %q", signinResp.ID)
	}
	if len(signinResp.FoundProducts) != 0 {
		t.Fatalf("expected no products yet, got %d", len(signinResp.FoundProducts))
	}

	product, err := addProduct(t, baseURL, owner.AccessToken)
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if product.OwnerID != owner.ID {
		t.Fatalf("product owned by %q, want %q", product.OwnerID, owner.ID)
	}

	updated, err := updateProduct(t, baseURL, owner.AccessToken, product.ID, 12.5)
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Price != 12.5 {
		t.Fatalf("unexpected price after update: %v", updated.Price)
	}
	if updated.Name != product.Name {
		t.Fatalf("update changed name: %q", updated.Name)
	}

	otherEmail := fmt.Sprintf("intruder_%d@example.com", time.Now().UnixNano())
	intruder, err := signup(t, baseURL, otherEmail, password)
	if err != nil {
		t.Fatalf("signup intruder: %v", err)
	}

	if status := deleteProductStatus(t, baseURL, intruder.AccessToken, product.ID); status != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign delete, got %d", status)
	}

	if status := deleteProductStatus(t, baseURL, owner.AccessToken, product.ID); status != http.StatusOK {
		t.Fatalf("expected 200 for owner delete, got %d", status)
	}

	if status := getProductsStatus(t, baseURL, owner.AccessToken); status != http.StatusNotFound {
		t.Fatalf("expected 404 after deleting only product, got %d", status)
	}
}

func TestRefreshTokenFallback(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("refresh_%d@example.com", time.Now().UnixNano())

	owner, err := signup(t, baseURL, email, "testpass123!")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, baseURL+"/user/verify", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+owner.RefreshToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("verify with refresh token: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("verify status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode verify response: %v", err)
	}
	if parsed.AccessToken == "" {
		t.Fatalf("expected fresh access token")
	}
	if parsed.VerifyHeader != owner.ID {
		t.Fatalf("verify returned wrong subject: %q", parsed.VerifyHeader)
	}
}

type authResponse struct {
	ID           string `json:"id"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type signinResponse struct {
	ID            string            `json:"id"`
	AccessToken   string            `json:"accessToken"`
	RefreshToken  string            `json:"refreshToken"`
	FoundProducts []productResponse `json:"foundProducts"`
}

type verifyResponse struct {
	AccessToken  string `json:"accessToken"`
	VerifyHeader string `json:"verifyHeader"`
}

type productResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	OwnerID string  `json:"userId"`
}

func signup(t *testing.T, baseURL, email, password string) (authResponse, error) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return authResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/user/signup", bytes.NewReader(body))
	if err != nil {
		return authResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return authResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return authResponse{}, fmt.Errorf("signup status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return authResponse{}, err
	}
	return parsed, nil
}

func signin(t *testing.T, baseURL, email, password string) (signinResponse, error) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return signinResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/user/signin", bytes.NewReader(body))
	if err != nil {
		return signinResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return signinResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return signinResponse{}, fmt.Errorf("signin status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed signinResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return signinResponse{}, err
	}
	return parsed, nil
}

func addProduct(t *testing.T, baseURL, token string) (productResponse, error) {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"name":        "Widget",
		"price":       9.99,
		"description": "A fine widget.",
		"image":       "widgets/widget.png",
		"amount":      5,
	})
	if err != nil {
		return productResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/user/addproduct", bytes.NewReader(body))
	if err != nil {
		return productResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return productResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return productResponse{}, fmt.Errorf("add product status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed productResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return productResponse{}, err
	}
	return parsed, nil
}

func updateProduct(t *testing.T, baseURL, token, productID string, price float64) (productResponse, error) {
	t.Helper()

	body, err := json.Marshal(map[string]any{"price": price})
	if err != nil {
		return productResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPut, baseURL+"/user/updateproduct", bytes.NewReader(body))
	if err != nil {
		return productResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("productId", productID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return productResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return productResponse{}, fmt.Errorf("update product status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed productResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return productResponse{}, err
	}
	return parsed, nil
}

func deleteProductStatus(t *testing.T, baseURL, token, productID string) int {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, baseURL+"/user/deleteproduct", nil)
	if err != nil {
		t.Fatalf("build delete request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("productId", productID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete product: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func getProductsStatus(t *testing.T, baseURL, token string) int {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/user/getproduct", nil)
	if err != nil {
		t.Fatalf("build get request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get products: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func setServerEnv() {
	_ = os.Setenv("ACCESS_TOKEN_SECRET", "test-access-secret")
	_ = os.Setenv("REFRESH_TOKEN_SECRET", "test-refresh-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "vantro")
	_ = os.Setenv("DB_PASSWORD", "vantro")
	_ = os.Setenv("DB_NAME", "vantro")
	_ = os.Setenv("DB_USE_SSL", "false")
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
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
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
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

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
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
