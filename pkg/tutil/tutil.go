// Package tutil holds helpers shared by tests. Integration tests that
// need a live service (redis, an S3 endpoint) only run when DEPOT_TEST
// is set to "integration".
package tutil

import (
	"os"
	"strings"
	"testing"
)

func IsIntegrationTest() bool {
	testType := os.Getenv("DEPOT_TEST")
	return strings.ToLower(testType) == "integration"
}

// SkipUnlessIntegration skips t outside of integration runs.
func SkipUnlessIntegration(t *testing.T) {
	t.Helper()
	if !IsIntegrationTest() {
		t.Skip("integration test; set DEPOT_TEST=integration to run")
	}
}
