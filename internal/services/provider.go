package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"casino-aggregator-backend/internal/config"
	"casino-aggregator-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// TransportError wraps network-level failures talking to the provider so
// callers can tell them apart from provider-side rejections.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("provider transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ProviderResponse is the uniform result shape for every provider call.
// Status is 400 whenever the body carries an explicit falsy status field,
// regardless of the transport status code.
type ProviderResponse struct {
	Data       map[string]interface{}
	HTTPStatus int
	Status     int
}

// Ok reports logical success: a 2xx normalized status.
func (r *ProviderResponse) Ok() bool {
	return r.Status >= 200 && r.Status < 300
}

// Msg returns the provider's error message, if any.
func (r *ProviderResponse) Msg() string {
	if msg, ok := r.Data["msg"].(string); ok {
		return msg
	}
	return ""
}

// StatusTrue reports whether the body carries an explicit truthy status field.
func (r *ProviderResponse) StatusTrue() bool {
	v, ok := r.Data["status"]
	return ok && !isFalsy(v)
}

// BodyStatus returns the numeric status field from the response body. The
// provider signals auth failures as a status code inside an HTTP-200 body.
func (r *ProviderResponse) BodyStatus() (int, bool) {
	switch v := r.Data["status"].(type) {
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Providers decodes the provider_list payload.
func (r *ProviderResponse) Providers() ([]models.Provider, error) {
	var providers []models.Provider
	if err := decodeField(r.Data, "providers", &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

// Games decodes the game_list payload.
func (r *ProviderResponse) Games() ([]models.ProviderGame, error) {
	var games []models.ProviderGame
	if err := decodeField(r.Data, "games", &games); err != nil {
		return nil, err
	}
	return games, nil
}

// LaunchURL returns the game_launch url, empty when the launch failed.
func (r *ProviderResponse) LaunchURL() string {
	if u, ok := r.Data["launch_url"].(string); ok {
		return u
	}
	return ""
}

func decodeField(data map[string]interface{}, field string, out interface{}) error {
	raw, ok := data[field]
	if !ok {
		return nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to re-encode %s: %v", field, err)
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return fmt.Errorf("failed to decode %s: %v", field, err)
	}
	return nil
}

// ProviderClient is the stateless wrapper around the provider's JSON API.
// Every request body is stamped with the agent credentials and the method
// name; it never retries.
type ProviderClient struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewProviderClient(cfg *config.Config, logger *logrus.Logger) *ProviderClient {
	return &ProviderClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 100 * time.Second,
		},
		logger: logger,
	}
}

// Send posts body to the named endpoint. The caller's map is not mutated; an
// amount field is coerced to an integer before transmission.
func (c *ProviderClient) Send(endpoint string, body map[string]interface{}, method string) (*ProviderResponse, error) {
	payload := make(map[string]interface{}, len(body)+3)
	for k, v := range body {
		payload[k] = v
	}

	if amount, ok := payload["amount"]; ok {
		payload["amount"] = coerceAmount(amount)
	}

	payload["agent_code"] = c.cfg.AgentCode
	payload["agent_token"] = c.cfg.AgentToken
	payload["method"] = endpoint

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %v", err)
	}

	if c.cfg.Debug {
		c.logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"method":   method,
			"body":     string(encoded),
		}).Debug("provider request")
	}

	url := strings.TrimRight(c.cfg.APIURL, "/") + "/" + strings.TrimLeft(endpoint, "/")

	var httpMethod string
	switch strings.ToLower(method) {
	case "", "post":
		httpMethod = http.MethodPost
	case "put":
		httpMethod = http.MethodPut
	case "delete":
		httpMethod = http.MethodDelete
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	req, err := http.NewRequest(httpMethod, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"body":     string(raw),
	}).Info("provider response")

	data := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("invalid provider response: %v", err)
		}
	}

	status := resp.StatusCode
	if v, ok := data["status"]; ok && isFalsy(v) {
		status = http.StatusBadRequest
	}

	return &ProviderResponse{
		Data:       data,
		HTTPStatus: resp.StatusCode,
		Status:     status,
	}, nil
}

func (c *ProviderClient) ProviderList() (*ProviderResponse, error) {
	return c.Send("provider_list", map[string]interface{}{}, "post")
}

func (c *ProviderClient) GameList(providerCode string) (*ProviderResponse, error) {
	return c.Send("game_list", map[string]interface{}{
		"provider_code": providerCode,
	}, "post")
}

func (c *ProviderClient) GameLaunch(userCode, userBalance, providerCode, gameCode string) (*ProviderResponse, error) {
	return c.Send("game_launch", map[string]interface{}{
		"user_balance":  userBalance,
		"user_code":     userCode,
		"provider_code": providerCode,
		"game_code":     gameCode,
		"lang":          "en",
	}, "post")
}

// CreateUser registers the user on the agent wallet. The provider answers
// with a falsy status and a msg when the code is already taken.
func (c *ProviderClient) CreateUser(userCode string) error {
	resp, err := c.Send("user_create", map[string]interface{}{
		"user_code": userCode,
	}, "post")
	if err != nil {
		return err
	}
	if !resp.StatusTrue() {
		return fmt.Errorf("user_create failed: %s", resp.Msg())
	}
	return nil
}

func (c *ProviderClient) Deposit(userCode string, amount float64) error {
	resp, err := c.Send("user_deposit", map[string]interface{}{
		"user_code": userCode,
		"amount":    amount,
	}, "post")
	if err != nil {
		return err
	}
	if !resp.StatusTrue() {
		return fmt.Errorf("user_deposit failed: %s", resp.Msg())
	}
	return nil
}

func (c *ProviderClient) Withdraw(userCode string, amount float64) error {
	resp, err := c.Send("user_withdraw", map[string]interface{}{
		"user_code": userCode,
		"amount":    amount,
	}, "post")
	if err != nil {
		return err
	}
	if !resp.StatusTrue() {
		return fmt.Errorf("user_withdraw failed: %s", resp.Msg())
	}
	return nil
}

// coerceAmount truncates an amount of any JSON-ish type to a whole number,
// which is what the provider's wallet endpoints expect.
func coerceAmount(v interface{}) int64 {
	switch amount := v.(type) {
	case int64:
		return amount
	case int:
		return int64(amount)
	case float64:
		return int64(amount)
	case string:
		if parsed, err := strconv.ParseFloat(amount, 64); err == nil {
			return int64(parsed)
		}
	}
	return 0
}

// isFalsy mirrors loose JSON truthiness: false, 0, "" and null all count.
func isFalsy(v interface{}) bool {
	switch value := v.(type) {
	case nil:
		return true
	case bool:
		return !value
	case float64:
		return value == 0
	case string:
		return value == "" || value == "0" || value == "false"
	}
	return false
}
