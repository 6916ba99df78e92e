package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeServer(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var saved []map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ip-info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"ip": "203.0.113.7", "country": "India", "city": "Pune", "countryCode": "IN"})
	})
	mux.HandleFunc("POST /api/save-user", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		saved = append(saved, body)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "userId": "lead-1"})
	})
	mux.HandleFunc("POST /create-checkout-session", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"sessionId": "cs_1", "url": "https://checkout.stripe.com/c/pay/cs_1"})
	})
	mux.HandleFunc("GET /subscription-status/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "sub_1" {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "No such subscription"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "active", "currentPeriodEnd": 1767225600, "cancelAtPeriodEnd": true})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &saved
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCheckoutPrintsURL(t *testing.T) {
	srv, saved := fakeServer(t)

	out, _, err := execute(t, "checkout", "--server", srv.URL,
		"--name", "A B", "--email", "a@b.com", "--phone", "123",
		"--country", "IN", "--state", "MH", "--city", "Pune")

	require.NoError(t, err)
	assert.Contains(t, out, "Location: Pune, India (203.0.113.7)")
	assert.Contains(t, out, "Checkout: https://checkout.stripe.com/c/pay/cs_1")
	assert.Contains(t, out, "Lead: lead-1")
	assert.Contains(t, out, "State: success")

	require.Len(t, *saved, 1)
	assert.Equal(t, "hosted-redirect", (*saved)[0]["paymentMethod"])
	assert.Equal(t, "a@b.com", (*saved)[0]["email"])
}

func TestCheckoutRejectsIncompleteForm(t *testing.T) {
	srv, saved := fakeServer(t)

	_, stderr, err := execute(t, "checkout", "--server", srv.URL, "--name", "A B")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please fill in all required fields.")
	assert.Contains(t, stderr, "email")
	assert.Empty(t, *saved)
}

func TestStatusCommand(t *testing.T) {
	srv, _ := fakeServer(t)

	out, _, err := execute(t, "status", "sub_1", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:               active")
	assert.Contains(t, out, "2026-01-01T00:00:00Z")
	assert.Contains(t, out, "Cancel at period end: true")

	_, _, err = execute(t, "status", "sub_404", "--server", srv.URL)
	assert.Error(t, err)
}

func TestLocationCommand(t *testing.T) {
	srv, _ := fakeServer(t)

	out, _, err := execute(t, "location", "--server", srv.URL)
	require.NoError(t, err)

	var geo map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &geo))
	assert.Equal(t, "IN", geo["countryCode"])
}
