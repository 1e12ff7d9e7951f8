package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tourbooking/internal/pkg/logger"
)

// Result is what every send returns. Sends never fail with an error value;
// callers log a failed Result and carry on.
type Result struct {
	Success bool   `json:"success"`
	EmailID string `json:"emailId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Config struct {
	APIKey  string
	BaseURL string
	From    string
	Timeout time.Duration
}

// Dispatcher sends transactional e-mail through the provider's HTTP API.
// Without an API key it runs in mock mode and only logs.
type Dispatcher struct {
	cfg       Config
	client    *http.Client
	log       logrus.FieldLogger
	templates *templates
}

func NewDispatcher(cfg Config, client *http.Client, log logrus.FieldLogger) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Dispatcher{
		cfg:       cfg,
		client:    client,
		log:       logger.OrDiscard(log).WithField("component", "notification"),
		templates: mustParseTemplates(),
	}
}

func (d *Dispatcher) SendConfirmation(ctx context.Context, to string, bc BookingContext) Result {
	return d.send(ctx, kindConfirmation, to, bc)
}

func (d *Dispatcher) SendAdminNotification(ctx context.Context, to string, bc BookingContext) Result {
	return d.send(ctx, kindAdminPaid, to, bc)
}

func (d *Dispatcher) SendNewBookingNotification(ctx context.Context, to string, bc BookingContext) Result {
	return d.send(ctx, kindAdminNew, to, bc)
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type emailResponse struct {
	ID string `json:"id"`
}

func (d *Dispatcher) send(ctx context.Context, k kind, to string, bc BookingContext) Result {
	log := d.log.WithFields(logrus.Fields{"kind": k, "to": to, "booking_reference": bc.Reference})

	to = strings.TrimSpace(to)
	if to == "" {
		return d.fail(log, "recipient is empty")
	}
	msg, err := d.templates.render(k, bc)
	if err != nil {
		return d.fail(log, fmt.Sprintf("render: %v", err))
	}

	if d.cfg.APIKey == "" {
		id := "mock-" + uuid.NewString()
		log.WithFields(logrus.Fields{"email_id": id, "subject": msg.subject}).Info("email api key not set, mock send")
		return Result{Success: true, EmailID: id}
	}

	body, err := json.Marshal(emailRequest{From: d.cfg.From, To: []string{to}, Subject: msg.subject, HTML: msg.html, Text: msg.text})
	if err != nil {
		return d.fail(log, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return d.fail(log, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return d.fail(log, err.Error())
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return d.fail(log.WithField("status", resp.StatusCode), fmt.Sprintf("email api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	var out emailResponse
	_ = json.Unmarshal(raw, &out)

	log.WithField("email_id", out.ID).Info("email sent")
	return Result{Success: true, EmailID: out.ID}
}

func (d *Dispatcher) fail(log logrus.FieldLogger, msg string) Result {
	log.WithField("error", msg).Error("email send failed")
	return Result{Success: false, Error: msg}
}
