package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nyumba/nyumba-api/internal/config"
	"github.com/nyumba/nyumba-api/pkg/logger"
)

// SMSService sends short messages through an HTTP SMS provider. When
// no provider is configured it logs the message and moves on, which
// keeps development environments working without credentials.
type SMSService struct {
	baseURL    string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

func NewSMSService(cfg *config.Config) *SMSService {
	return &SMSService{
		baseURL:    cfg.SMSBaseURL,
		apiKey:     cfg.SMSAPIKey,
		senderID:   cfg.SMSSenderID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SMSService) Send(ctx context.Context, phone, message string) error {
	if s.baseURL == "" {
		logger.Info(fmt.Sprintf("📱 [SMS Skipped] To: %s | %s", phone, message))
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"to":      phone,
		"from":    s.senderID,
		"message": message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sms provider returned %d", resp.StatusCode)
	}

	logger.Info(fmt.Sprintf("📱 [SMS Sent] To: %s", phone))

	return nil
}

func (s *SMSService) SendPaymentConfirmation(ctx context.Context, phone string, amount int64, currency, receiptNumber string) error {
	message := fmt.Sprintf("Payment of %d %s received. Receipt %s. Thank you.", amount, currency, receiptNumber)
	return s.Send(ctx, phone, message)
}
