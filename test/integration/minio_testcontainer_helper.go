package integration

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nanotrace/certification-backend/internal/service"
)

const defaultMinioTestImage = "docker.io/minio/minio:RELEASE.2025-09-07T16-13-09Z"

type minioIntegrationEnv struct {
	bucket  string
	client  *minio.Client
	storage *service.MinIOSDSStorage
}

func newMinIOIntegrationEnv(t *testing.T, maxBytes int64) *minioIntegrationEnv {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	image := strings.TrimSpace(os.Getenv("MINIO_TEST_IMAGE"))
	if image == "" {
		image = defaultMinioTestImage
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: image,
			Env: map[string]string{
				"MINIO_ROOT_USER":     "minioadmin",
				"MINIO_ROOT_PASSWORD": "minioadmin",
			},
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data", "--address", ":9000"},
			WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio test container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("resolve minio host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9000/tcp")
	if err != nil {
		t.Fatalf("resolve minio port: %v", err)
	}
	endpoint := net.JoinHostPort(host, port.Port())

	client, err := service.NewMinIOClient(endpoint, "minioadmin", "minioadmin", false)
	if err != nil {
		t.Fatalf("create minio client: %v", err)
	}
	waitForMinIOReady(t, client)

	bucket := fmt.Sprintf("sds-it-%d", time.Now().UnixNano())
	return &minioIntegrationEnv{
		bucket:  bucket,
		client:  client,
		storage: service.NewMinIOSDSStorage(client, bucket, maxBytes, []string{"application/pdf", "text/plain"}),
	}
}

func waitForMinIOReady(t *testing.T, client *minio.Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		_, err := client.ListBuckets(ctx)
		if err == nil {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("minio readiness check timed out: %v", err)
		case <-ticker.C:
		}
	}
}

func (e *minioIntegrationEnv) objectExists(t *testing.T, key string) bool {
	t.Helper()
	_, err := e.client.StatObject(context.Background(), e.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket") {
		return false
	}
	t.Fatalf("stat object %q: %v", key, err)
	return false
}
