// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package testhelper provides shared helpers for the test suites.
package testhelper

import (
	"net/http"
	"os"
	"testing"
)

// IntegrationTestEnv is the environment variable that enables test cases
// which talk to live external APIs.
const IntegrationTestEnv = "FIELDSYNC_INTEGRATION_TESTS"

// PerformIntegrationTests skips the calling test unless integration tests
// have been explicitly enabled.
func PerformIntegrationTests(t *testing.T) {
	t.Helper()
	if os.Getenv(IntegrationTestEnv) == "" {
		t.Skipf("skipping integration test, set %s to enable", IntegrationTestEnv)
	}
}

// MockRoundTripper implements http.RoundTripper with a caller provided
// function, so HTTP clients can be tested without a network.
type MockRoundTripper struct {
	Fn func(req *http.Request) (*http.Response, error)
}

func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}
