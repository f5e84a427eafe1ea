package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"umlreg/internal/slogutil"
	"umlreg/internal/version"
)

// Config contains webhook settings
type Config struct {
	Endpoints    []Endpoint `json:"endpoints" mapstructure:"endpoints"`
	TimeoutMs    int        `json:"timeoutMs" mapstructure:"timeoutMs"`
	MaxAttempts  int        `json:"maxAttempts" mapstructure:"maxAttempts"`
	RetryDelayMs int        `json:"retryDelayMs" mapstructure:"retryDelayMs"`
	QueueSize    int        `json:"queueSize" mapstructure:"queueSize"`
}

// DefaultConfig returns the default webhook configuration
func DefaultConfig() Config {
	return Config{
		Endpoints:    []Endpoint{},
		TimeoutMs:    10000,
		MaxAttempts:  3,
		RetryDelayMs: 5000,
		QueueSize:    64,
	}
}

// Validate checks every endpoint.
func (c Config) Validate() error {
	for i, e := range c.Endpoints {
		u, err := url.Parse(e.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("endpoints[%d]: url must be an absolute http(s) URL", i)
		}
		switch e.Format {
		case "", FormatJSON, FormatSlack, FormatDiscord:
		default:
			return fmt.Errorf("endpoints[%d]: unknown format %q", i, e.Format)
		}
		for _, ev := range e.Events {
			if ev != EventModelLoaded && ev != EventModelLoadFailed {
				return fmt.Errorf("endpoints[%d]: unknown event %q", i, ev)
			}
		}
	}
	return nil
}

// Manager queues events and delivers them to the configured endpoints.
// Failed deliveries are retried in memory; nothing survives a restart.
type Manager struct {
	endpoints   []Endpoint
	logger      *slog.Logger
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration

	queue    chan *Delivery
	quit     chan struct{}
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	delivered atomic.Int64
	dead      atomic.Int64
}

// NewManager creates a new webhook manager
func NewManager(config Config, logger *slog.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if config.TimeoutMs <= 0 {
		config.TimeoutMs = 10000
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		endpoints: config.Endpoints,
		logger:    logger,
		client: &http.Client{
			Timeout: time.Duration(config.TimeoutMs) * time.Millisecond,
		},
		maxAttempts: config.MaxAttempts,
		retryDelay:  time.Duration(config.RetryDelayMs) * time.Millisecond,
		queue:       make(chan *Delivery, config.QueueSize),
		quit:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the delivery worker
func (m *Manager) Start() {
	m.logger.Info("Starting webhook manager", "endpoints", len(m.endpoints), "maxAttempts", m.maxAttempts)
	m.wg.Add(1)
	go m.worker()
}

// Stop delivers what is already queued, once, and stops. Scheduled retries
// are dropped. Requests still running after timeout are cancelled.
func (m *Manager) Stop(timeout time.Duration) error {
	m.stopOnce.Do(func() { close(m.quit) })

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		m.logger.Debug("Webhook manager stopped")
		return nil
	case <-time.After(timeout):
		m.cancel()
		return fmt.Errorf("webhook manager shutdown timed out")
	}
}

// Stats returns the number of delivered and abandoned deliveries.
func (m *Manager) Stats() (delivered, dead int64) {
	return m.delivered.Load(), m.dead.Load()
}

// EmitLoad reports a finished load.
func (m *Manager) EmitLoad(report LoadReport, success bool) {
	typ := EventModelLoaded
	if !success {
		typ = EventModelLoadFailed
	}
	event, err := NewEvent(typ, report.Model, report)
	if err != nil {
		m.logger.Error("Failed to build webhook event", "model", report.Model, "error", err.Error())
		return
	}
	m.Emit(event)
}

// Emit queues event for every endpoint subscribed to its type. It never blocks;
// deliveries that do not fit the queue are dropped.
func (m *Manager) Emit(event *Event) {
	for _, endpoint := range m.endpoints {
		if !endpoint.Wants(event.Type) {
			continue
		}
		payload, err := formatPayload(endpoint.Format, event)
		if err != nil {
			m.logger.Error("Failed to format payload", "eventId", event.ID, "endpoint", endpoint.Name, "error", err.Error())
			continue
		}
		m.enqueue(&Delivery{
			ID:        "dlv_" + uuid.NewString(),
			Endpoint:  endpoint.URL,
			EventID:   event.ID,
			EventType: event.Type,
			Payload:   payload,
			Status:    DeliveryQueued,
			target:    endpoint,
		})
	}
}

func (m *Manager) enqueue(d *Delivery) {
	select {
	case <-m.quit:
		m.logger.Debug("Webhook manager stopped, dropping delivery", "deliveryId", d.ID)
		return
	default:
	}
	select {
	case m.queue <- d:
	default:
		m.logger.Warn("Webhook queue full, dropping delivery", "deliveryId", d.ID, "eventType", string(d.EventType))
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()

	for {
		select {
		case d := <-m.queue:
			m.attempt(d)
		case <-m.quit:
			for {
				select {
				case d := <-m.queue:
					m.attempt(d)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) attempt(d *Delivery) {
	m.deliver(d)
	switch d.Status {
	case DeliveryDelivered:
		m.delivered.Add(1)
	case DeliveryDead:
		m.dead.Add(1)
		m.logger.Error("Webhook delivery abandoned", "deliveryId", d.ID, "url", d.Endpoint, "attempts", d.Attempts, "error", d.LastError)
	case DeliveryPending:
		time.AfterFunc(time.Until(*d.NextRetryAt), func() { m.enqueue(d) })
	}
}

// deliver makes one attempt
func (m *Manager) deliver(d *Delivery) {
	endpoint := d.target
	m.logger.Debug("Delivering webhook", "deliveryId", d.ID, "url", endpoint.URL, "attempt", d.Attempts+1)

	req, err := http.NewRequestWithContext(m.ctx, http.MethodPost, endpoint.URL, bytes.NewBufferString(d.Payload))
	if err != nil {
		d.MarkFailed(err, m.maxAttempts, m.retryDelay)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "umlreg-webhook/"+version.Version)
	req.Header.Set("X-Umlreg-Event-ID", d.EventID)
	req.Header.Set("X-Umlreg-Event-Type", string(d.EventType))
	req.Header.Set("X-Umlreg-Delivery-ID", d.ID)
	for k, v := range endpoint.Headers {
		req.Header.Set(k, v)
	}
	if endpoint.Secret != "" {
		req.Header.Set("X-Umlreg-Signature-256", "sha256="+SignPayload(d.Payload, endpoint.Secret))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		d.MarkFailed(err, m.maxAttempts, m.retryDelay)
		m.logger.Warn("Webhook delivery failed", "deliveryId", d.ID, "attempts", d.Attempts, "error", err.Error())
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.MarkFailed(fmt.Errorf("HTTP %d", resp.StatusCode), m.maxAttempts, m.retryDelay)
		d.ResponseCode = resp.StatusCode
		m.logger.Warn("Webhook delivery rejected", "deliveryId", d.ID, "status", resp.StatusCode, "attempts", d.Attempts)
		return
	}
	d.MarkDelivered(resp.StatusCode)
	m.logger.Debug("Webhook delivered", "deliveryId", d.ID, "status", resp.StatusCode)
}

// SignPayload returns the hex HMAC-SHA256 of payload.
func SignPayload(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func formatPayload(format Format, event *Event) (string, error) {
	var payload interface{}
	switch format {
	case FormatSlack:
		payload = slackPayload(event)
	case FormatDiscord:
		payload = discordPayload(event)
	default:
		payload = map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"timestamp":  event.Timestamp.Format(time.RFC3339),
			"model":      event.Model,
			"data":       event.Data,
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func summaryLine(event *Event) string {
	var r LoadReport
	if err := json.Unmarshal(event.Data, &r); err != nil {
		return ""
	}
	if r.Failure != "" {
		return r.Failure
	}
	return fmt.Sprintf("%d elements, %d errors, %d warnings", r.Elements, r.Errors, r.Warnings)
}

func slackPayload(event *Event) map[string]interface{} {
	text := fmt.Sprintf(":white_check_mark: Model %s loaded", event.Model)
	color := "good"
	if event.Type == EventModelLoadFailed {
		text = fmt.Sprintf(":x: Model %s failed to load", event.Model)
		color = "danger"
	}
	return map[string]interface{}{
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"text":   text + "\n" + summaryLine(event),
				"ts":     event.Timestamp.Unix(),
				"footer": "umlreg",
			},
		},
	}
}

func discordPayload(event *Event) map[string]interface{} {
	color, title := 0x00FF00, "Model loaded"
	if event.Type == EventModelLoadFailed {
		color, title = 0xFF0000, "Model load failed"
	}
	return map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       title + ": " + event.Model,
				"description": summaryLine(event),
				"color":       color,
				"timestamp":   event.Timestamp.Format(time.RFC3339),
				"footer":      map[string]interface{}{"text": "umlreg"},
			},
		},
	}
}
