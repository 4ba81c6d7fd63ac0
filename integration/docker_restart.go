//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

// restartCatalogContainer forces a reload from the configured source.
func restartCatalogContainer(t *testing.T, ctx context.Context) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "docker", "compose", "restart", getenv("E2E_CATALOG_SERVICE", "catalog"))
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart catalog failed: %v\n%s", err, string(out))
	}
}
