// Package backend est le client HTTP de l'API REST du restaurant (commandes, paiement).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"resto_storefront/internal/models"
)

// APIError est une réponse non-2xx de l'API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("restaurant API error: status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient crée le client; baseURL inclut le préfixe (ex: https://api.example.com/api)
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type OrderLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// OrderRequest est le corps de POST /orders. Aucun prix n'est envoyé :
// le total est calculé par le serveur.
type OrderRequest struct {
	Customer      Customer               `json:"customer"`
	Type          models.FulfillmentType `json:"type"`
	PaymentMethod models.PaymentMethod   `json:"paymentMethod"`
	Notes         string                 `json:"notes,omitempty"`
	Items         []OrderLine            `json:"items"`
}

type orderEnvelope struct {
	Order *models.PlacedOrder `json:"order"`
}

// CreateOrder appelle POST /orders une seule fois
func (c *Client) CreateOrder(ctx context.Context, token, idempotencyKey string, req OrderRequest) (*models.PlacedOrder, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	body, err := c.do(ctx, http.MethodPost, "/orders", token, headers, req)
	if err != nil {
		return nil, err
	}

	// l'API répond soit {"order": {...}} soit directement la commande
	var env orderEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Order != nil {
		return env.Order, nil
	}
	var order models.PlacedOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &order, nil
}

type paymentIntentRequest struct {
	Amount  int64  `json:"amount"`
	OrderID string `json:"orderId"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// CreatePaymentIntent appelle POST /payment/create-payment-intent et retourne le client secret
func (c *Client) CreatePaymentIntent(ctx context.Context, token string, amount int64, orderID string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/payment/create-payment-intent", token, nil,
		paymentIntentRequest{Amount: amount, OrderID: orderID})
	if err != nil {
		return "", err
	}

	var resp paymentIntentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	if resp.ClientSecret == "" {
		return "", fmt.Errorf("payment intent response has no clientSecret")
	}
	return resp.ClientSecret, nil
}

type ordersEnvelope struct {
	Orders []models.PlacedOrder `json:"orders"`
}

// ActiveOrders retourne les commandes en cours de l'utilisateur (indicateur du tableau de bord)
func (c *Client) ActiveOrders(ctx context.Context, token string) ([]models.PlacedOrder, error) {
	body, err := c.do(ctx, http.MethodGet, "/orders/my?active=true", token, nil, nil)
	if err != nil {
		return nil, err
	}

	var env ordersEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Orders != nil {
		return env.Orders, nil
	}
	var orders []models.PlacedOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("failed to unmarshal orders: %w", err)
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, headers map[string]string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("restaurant API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage extrait "message" ou "error" du corps, sinon le corps brut
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
