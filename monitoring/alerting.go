// Package monitoring provides alerting capabilities for the tweet filter client
package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType represents the type of alert
type AlertType string

const (
	AlertTypeUpstreamUnreachable AlertType = "upstream_unreachable"
	AlertTypeJobTimeout          AlertType = "job_timeout"
	AlertTypeProtocolViolation   AlertType = "protocol_violation"
	AlertTypeHighFailureRate     AlertType = "high_failure_rate"
)

// Alert represents an alert
type Alert struct {
	ID          string                 `json:"id"`
	Type        AlertType              `json:"type"`
	Severity    AlertSeverity          `json:"severity"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Timestamp   time.Time              `json:"timestamp"`
	Labels      map[string]string      `json:"labels"`
	Annotations map[string]interface{} `json:"annotations"`
	Resolved    bool                   `json:"resolved"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
}

// AlertRule defines a rule for generating alerts
type AlertRule struct {
	Name        string
	Type        AlertType
	Severity    AlertSeverity
	Condition   func() bool
	Title       string
	Description string
	Labels      map[string]string
	Enabled     bool
}

// Notifier interface for sending alert notifications
type Notifier interface {
	Send(alert *Alert) error
	Name() string
}

// LogNotifier sends alerts to the log
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Send(alert *Alert) error {
	level := logrus.InfoLevel
	switch alert.Severity {
	case SeverityHigh:
		level = logrus.WarnLevel
	case SeverityCritical:
		level = logrus.ErrorLevel
	}

	n.logger.WithFields(logrus.Fields{
		"alert_id":    alert.ID,
		"alert_type":  alert.Type,
		"severity":    alert.Severity,
		"labels":      alert.Labels,
		"annotations": alert.Annotations,
	}).Log(level, fmt.Sprintf("ALERT: %s - %s", alert.Title, alert.Description))

	return nil
}

// OutcomeWindow keeps the most recent terminal outcomes of filter operations
type OutcomeWindow struct {
	mu       sync.Mutex
	outcomes []string
	size     int
	next     int
	full     bool
}

// NewOutcomeWindow creates a window holding the last size outcomes
func NewOutcomeWindow(size int) *OutcomeWindow {
	if size <= 0 {
		size = 20
	}
	return &OutcomeWindow{outcomes: make([]string, size), size: size}
}

// Add records one outcome
func (w *OutcomeWindow) Add(outcome string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.outcomes[w.next] = outcome
	w.next = (w.next + 1) % w.size
	if w.next == 0 {
		w.full = true
	}
}

// FailureRate returns the share of non-completed outcomes and how many were counted
func (w *OutcomeWindow) FailureRate() (float64, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.next
	if w.full {
		n = w.size
	}
	if n == 0 {
		return 0, 0
	}

	failed := 0
	for _, o := range w.outcomes[:n] {
		if o != "completed" && o != "canceled" {
			failed++
		}
	}
	return float64(failed) / float64(n), n
}

// AlertManager manages alerts and notifications
type AlertManager struct {
	alerts    map[string]*Alert
	mutex     sync.RWMutex
	logger    *logrus.Logger
	rules     []AlertRule
	notifiers []Notifier
	outcomes  *OutcomeWindow
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewAlertManager creates an alert manager and starts evaluating its rules every interval
func NewAlertManager(logger *logrus.Logger, interval time.Duration) *AlertManager {
	ctx, cancel := context.WithCancel(context.Background())
	if interval <= 0 {
		interval = time.Minute
	}

	am := &AlertManager{
		alerts:    make(map[string]*Alert),
		logger:    logger,
		notifiers: []Notifier{NewLogNotifier(logger)},
		outcomes:  NewOutcomeWindow(20),
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	am.rules = am.defaultAlertRules()

	go am.evaluateRules()

	return am
}

func (am *AlertManager) defaultAlertRules() []AlertRule {
	return []AlertRule{
		{
			Name:     "High Filter Failure Rate",
			Type:     AlertTypeHighFailureRate,
			Severity: SeverityHigh,
			Condition: func() bool {
				rate, n := am.outcomes.FailureRate()
				return n >= 5 && rate > 0.5
			},
			Title:       "High filter job failure rate detected",
			Description: "More than half of the recent filter operations did not complete",
			Labels:      map[string]string{"service": tracerName},
			Enabled:     true,
		},
	}
}

// RecordOutcome feeds one terminal outcome into the failure-rate window and
// raises an immediate alert for outcomes that point at the remote service.
func (am *AlertManager) RecordOutcome(transport, outcome, detail string) {
	am.outcomes.Add(outcome)

	labels := map[string]string{"service": tracerName, "transport": transport}
	switch outcome {
	case "network", "connection_lost":
		am.TriggerManualAlert(AlertTypeUpstreamUnreachable, SeverityHigh,
			"Remote tweet service unreachable", detail, labels)
	case "timeout":
		am.TriggerManualAlert(AlertTypeJobTimeout, SeverityMedium,
			"Filter job exceeded its polling budget", detail, labels)
	case "protocol":
		am.TriggerManualAlert(AlertTypeProtocolViolation, SeverityCritical,
			"Remote tweet service returned an inconsistent response", detail, labels)
	}
}

func (am *AlertManager) evaluateRules() {
	defer close(am.done)

	ticker := time.NewTicker(am.interval)
	defer ticker.Stop()

	for {
		select {
		case <-am.ctx.Done():
			return
		case <-ticker.C:
			am.evaluateAllRules()
		}
	}
}

func (am *AlertManager) evaluateAllRules() {
	am.mutex.RLock()
	rules := make([]AlertRule, len(am.rules))
	copy(rules, am.rules)
	am.mutex.RUnlock()

	for _, rule := range rules {
		if rule.Enabled && rule.Condition() {
			am.triggerAlert(rule)
		}
	}
}

func (am *AlertManager) triggerAlert(rule AlertRule) {
	alert := newAlert(rule.Type, rule.Severity, rule.Title, rule.Description, rule.Labels)

	am.mutex.Lock()
	for _, existing := range am.alerts {
		if existing.Type == rule.Type && !existing.Resolved {
			am.mutex.Unlock()
			return
		}
	}
	am.alerts[alert.ID] = alert
	am.mutex.Unlock()

	am.sendNotifications(alert)
}

func (am *AlertManager) sendNotifications(alert *Alert) {
	am.mutex.RLock()
	notifiers := append([]Notifier(nil), am.notifiers...)
	am.mutex.RUnlock()

	for _, notifier := range notifiers {
		if err := notifier.Send(alert); err != nil {
			am.logger.WithError(err).WithField("notifier", notifier.Name()).Error("Failed to send alert notification")
		}
	}
}

func newAlert(alertType AlertType, severity AlertSeverity, title, description string, labels map[string]string) *Alert {
	return &Alert{
		ID:          fmt.Sprintf("%s-%s", alertType, uuid.NewString()),
		Type:        alertType,
		Severity:    severity,
		Title:       title,
		Description: description,
		Timestamp:   time.Now(),
		Labels:      labels,
		Annotations: make(map[string]interface{}),
	}
}

// TriggerManualAlert raises an alert regardless of rule state
func (am *AlertManager) TriggerManualAlert(alertType AlertType, severity AlertSeverity, title, description string, labels map[string]string) {
	alert := newAlert(alertType, severity, title, description, labels)

	am.mutex.Lock()
	am.alerts[alert.ID] = alert
	am.mutex.Unlock()

	am.sendNotifications(alert)
}

// ResolveAlert resolves an alert
func (am *AlertManager) ResolveAlert(alertID string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	if alert, exists := am.alerts[alertID]; exists {
		now := time.Now()
		alert.Resolved = true
		alert.ResolvedAt = &now

		am.logger.WithFields(logrus.Fields{
			"alert_id": alertID,
			"type":     alert.Type,
		}).Info("Alert resolved")
	}
}

// GetActiveAlerts returns all unresolved alerts
func (am *AlertManager) GetActiveAlerts() []*Alert {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	var active []*Alert
	for _, alert := range am.alerts {
		if !alert.Resolved {
			active = append(active, alert)
		}
	}
	return active
}

// AddNotifier adds a new notifier
func (am *AlertManager) AddNotifier(notifier Notifier) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	am.notifiers = append(am.notifiers, notifier)
}

// Stop stops the rule evaluation loop and waits for it to exit
func (am *AlertManager) Stop() {
	am.cancel()
	<-am.done
}
