package services_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"casino-aggregator-backend/internal/config"
	"casino-aggregator-backend/internal/services"

	"github.com/sirupsen/logrus"
)

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		AgentCode:       "agent1",
		AgentToken:      "token1",
		APIURL:          apiURL,
		DefaultCurrency: "usd",
		TokenRate:       1000,
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestProviderClientStampsBody(t *testing.T) {
	var received map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.Write([]byte(`{"status":1}`))
	}))
	defer server.Close()

	client := services.NewProviderClient(testConfig(server.URL), testLogger())

	body := map[string]interface{}{"user_code": "alice", "amount": 12.9}
	resp, err := client.Send("user_deposit", body, "post")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !resp.Ok() {
		t.Errorf("Expected ok response, got status %d", resp.Status)
	}

	if received["agent_code"] != "agent1" || received["agent_token"] != "token1" {
		t.Errorf("Agent credentials not injected: %v", received)
	}
	if received["method"] != "user_deposit" {
		t.Errorf("Method not injected: %v", received["method"])
	}
	if received["amount"] != float64(12) {
		t.Errorf("Amount should be truncated to a whole number, got %v", received["amount"])
	}

	// The caller's map must stay untouched.
	if _, ok := body["agent_code"]; ok {
		t.Error("Send mutated the caller's body")
	}
	if body["amount"] != 12.9 {
		t.Errorf("Send mutated the caller's amount: %v", body["amount"])
	}
}

func TestProviderClientNormalizesFalsyStatus(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		httpCode int
		want     int
	}{
		{"falsy int", `{"status":0,"msg":"NOPE"}`, 200, 400},
		{"falsy bool", `{"status":false}`, 200, 400},
		{"falsy string", `{"status":"0"}`, 200, 400},
		{"truthy", `{"status":1}`, 200, 200},
		{"missing status", `{"launch_url":"http://x"}`, 200, 200},
		{"http error kept", `{}`, 403, 403},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.httpCode)
				w.Write([]byte(tc.payload))
			}))
			defer server.Close()

			client := services.NewProviderClient(testConfig(server.URL), testLogger())
			resp, err := client.Send("game_launch", map[string]interface{}{}, "post")
			if err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			if resp.Status != tc.want {
				t.Errorf("Expected status %d, got %d", tc.want, resp.Status)
			}
		})
	}
}

func TestProviderClientTransportError(t *testing.T) {
	client := services.NewProviderClient(testConfig("http://127.0.0.1:1"), testLogger())

	_, err := client.Send("provider_list", map[string]interface{}{}, "post")
	if err == nil {
		t.Fatal("Expected a transport error")
	}
	if _, ok := err.(*services.TransportError); !ok {
		t.Errorf("Expected *TransportError, got %T", err)
	}
}

func TestProviderClientRejectsUnknownMethod(t *testing.T) {
	client := services.NewProviderClient(testConfig("http://localhost"), testLogger())

	if _, err := client.Send("provider_list", map[string]interface{}{}, "patch"); err == nil {
		t.Error("Unsupported HTTP method should fail")
	}
}

func TestProviderResponseDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": 1,
			"providers": [{"code":"pr","name":"Pragmatic","type":"slot"}],
			"games": [{"game_code":"g1","game_name":"Zeus","status":true}],
			"launch_url": "https://play.example/g1"
		}`))
	}))
	defer server.Close()

	client := services.NewProviderClient(testConfig(server.URL), testLogger())
	resp, err := client.Send("game_list", map[string]interface{}{}, "post")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	providers, err := resp.Providers()
	if err != nil || len(providers) != 1 || providers[0].Code != "pr" {
		t.Errorf("Failed to decode providers: %v %v", providers, err)
	}

	games, err := resp.Games()
	if err != nil || len(games) != 1 || games[0].GameCode != "g1" {
		t.Errorf("Failed to decode games: %v %v", games, err)
	}

	if resp.LaunchURL() != "https://play.example/g1" {
		t.Errorf("Unexpected launch url %s", resp.LaunchURL())
	}
	if !resp.StatusTrue() {
		t.Error("Expected truthy status")
	}
	if code, ok := resp.BodyStatus(); !ok || code != 1 {
		t.Errorf("Expected body status 1, got %d (ok=%v)", code, ok)
	}
}

func TestCreateUserRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"msg":"DUPLICATED_USER"}`))
	}))
	defer server.Close()

	client := services.NewProviderClient(testConfig(server.URL), testLogger())
	if err := client.CreateUser("alice"); err == nil {
		t.Error("Falsy status should surface as an error")
	}
}
