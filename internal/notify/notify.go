// Package notify delivers scheduling notifications over email, SMS, and
// the staff dashboard with template rendering and send-once deduplication
// for escalation reminders.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery channel for a notification.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
	ChannelDashboard Channel = "dashboard"
)

// Priority escalates presentation on the receiving side.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is a single outbound message.
type Notification struct {
	ID           string            `json:"id"`
	Channel      Channel           `json:"channel"`
	Recipient    string            `json:"recipient"`
	Subject      string            `json:"subject,omitempty"`
	Body         string            `json:"body"`
	TemplateID   string            `json:"template_id,omitempty"`
	TemplateData map[string]string `json:"template_data,omitempty"`
	Priority     Priority          `json:"priority"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	SentAt       *time.Time        `json:"sent_at,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// EmailSender sends email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender sends SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// DashboardPublisher pushes alerts to the staff dashboard feed.
type DashboardPublisher interface {
	Publish(ctx context.Context, recipient, subject, body string, priority Priority) error
}

// Template defines a reusable notification template.
type Template struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	Channel  Channel  `json:"channel"`
	Priority Priority `json:"priority"`
}

// TemplateEngine stores templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in scheduling
// templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:       "booking-confirmed",
			Name:     "Booking Confirmed",
			Subject:  "Your {{event_type}} appointment is confirmed",
			Body:     "Dear {{patient_name}}, your {{event_type}} appointment with {{provider}} on {{date}} at {{time}} is confirmed.",
			Channel:  ChannelEmail,
			Priority: PriorityNormal,
		},
		{
			ID:       "booking-cancelled",
			Name:     "Booking Cancelled",
			Subject:  "Your {{event_type}} appointment was cancelled",
			Body:     "Dear {{patient_name}}, your {{event_type}} appointment on {{date}} has been cancelled. Please contact the practice to reschedule.",
			Channel:  ChannelEmail,
			Priority: PriorityNormal,
		},
		{
			ID:       "task-overdue",
			Name:     "Preparation Task Overdue",
			Subject:  "Overdue: {{task_name}} for surgery on {{surgery_date}}",
			Body:     "The preparation task {{task_name}} for {{patient_name}} was due on {{due_date}} and is still open.",
			Channel:  ChannelDashboard,
			Priority: PriorityHigh,
		},
		{
			ID:       "requirement-reminder",
			Name:     "Requirement Reminder",
			Subject:  "Action needed before your surgery on {{surgery_date}}",
			Body:     "Dear {{patient_name}}, your {{requirement}} is still outstanding for your surgery on {{surgery_date}}. Please complete it as soon as possible.",
			Channel:  ChannelEmail,
			Priority: PriorityNormal,
		},
		{
			ID:       "requirement-urgent",
			Name:     "Requirement Urgent",
			Subject:  "Urgent: {{requirement}} missing, surgery on {{surgery_date}}",
			Body:     "{{patient_name}}: {{requirement}} is still missing with {{days_left}} days to surgery. The surgery will be blocked if it is not verified in time.",
			Channel:  ChannelSMS,
			Priority: PriorityHigh,
		},
		{
			ID:       "requirement-final",
			Name:     "Requirement Final Notice",
			Subject:  "FINAL NOTICE: {{requirement}} missing for surgery on {{surgery_date}}",
			Body:     "Surgery for {{patient_name}} on {{surgery_date}} is at risk: {{requirement}} has not been verified. Immediate action required.",
			Channel:  ChannelDashboard,
			Priority: PriorityUrgent,
		},
		{
			ID:       "surgery-blocked",
			Name:     "Surgery Blocked",
			Subject:  "Surgery on {{surgery_date}} blocked",
			Body:     "Surgery for {{patient_name}} scheduled on {{surgery_date}} was blocked: {{reason}}.",
			Channel:  ChannelDashboard,
			Priority: PriorityUrgent,
		},
		{
			ID:       "surgery-preparation",
			Name:     "Surgery Preparation Started",
			Subject:  "Preparation started for surgery on {{surgery_date}}",
			Body:     "Preparation for the surgery of {{patient_name}} on {{surgery_date}} has started. Equipment reservation is in progress.",
			Channel:  ChannelEmail,
			Priority: PriorityNormal,
		},
		{
			ID:       "surgery-ready",
			Name:     "Surgery Ready",
			Subject:  "Your surgery on {{surgery_date}} is confirmed ready",
			Body:     "Dear {{patient_name}}, all preparations for your surgery on {{surgery_date}} are complete.",
			Channel:  ChannelEmail,
			Priority: PriorityNormal,
		},
		{
			ID:       "surgery-cancelled",
			Name:     "Surgery Cancelled",
			Subject:  "Surgery on {{surgery_date}} cancelled",
			Body:     "The surgery of {{patient_name}} scheduled on {{surgery_date}} has been cancelled. Open preparation tasks were closed.",
			Channel:  ChannelEmail,
			Priority: PriorityHigh,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Lookup returns a template by ID.
func (e *TemplateEngine) Lookup(templateID string) (*Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.templates[templateID]
	return t, ok
}

// Render looks up a template by ID and performs {{key}} replacement using
// the supplied data map. Keys present in the template but absent from data
// are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	t, ok := e.Lookup(templateID)
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Dispatcher routes notifications to the right sender, keeps an in-memory
// record of everything sent, and deduplicates keyed sends so escalation
// sweeps stay idempotent.
type Dispatcher struct {
	emailSender EmailSender
	smsSender   SMSSender
	dashboard   DashboardPublisher
	templates   *TemplateEngine

	mu            sync.RWMutex
	notifications map[string]*Notification
	sentKeys      map[string]bool
}

func NewDispatcher(email EmailSender, sms SMSSender, dashboard DashboardPublisher, tpl *TemplateEngine) *Dispatcher {
	return &Dispatcher{
		emailSender:   email,
		smsSender:     sms,
		dashboard:     dashboard,
		templates:     tpl,
		notifications: make(map[string]*Notification),
		sentKeys:      make(map[string]bool),
	}
}

// Send dispatches a notification through its channel, assigns an ID and
// timestamps, and records the result.
func (d *Dispatcher) Send(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	n.CreatedAt = time.Now().UTC()
	n.Status = "pending"

	var sendErr error
	switch n.Channel {
	case ChannelEmail:
		sendErr = d.emailSender.SendEmail(ctx, n.Recipient, n.Subject, n.Body)
	case ChannelSMS:
		sendErr = d.smsSender.SendSMS(ctx, n.Recipient, n.Body)
	case ChannelDashboard:
		sendErr = d.dashboard.Publish(ctx, n.Recipient, n.Subject, n.Body, n.Priority)
	default:
		sendErr = fmt.Errorf("unsupported notification channel: %s", n.Channel)
	}

	if sendErr != nil {
		n.Status = "failed"
		n.Error = sendErr.Error()
	} else {
		n.Status = "sent"
		sentAt := time.Now().UTC()
		n.SentAt = &sentAt
	}

	d.mu.Lock()
	d.notifications[n.ID] = n
	d.mu.Unlock()

	return sendErr
}

// SendFromTemplate renders a template and sends the resulting notification
// on the template's channel.
func (d *Dispatcher) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Notification, error) {
	subject, body, err := d.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	tpl, _ := d.templates.Lookup(templateID)

	n := &Notification{
		Channel:      tpl.Channel,
		Recipient:    recipient,
		Subject:      subject,
		Body:         body,
		TemplateID:   templateID,
		TemplateData: data,
		Priority:     tpl.Priority,
	}

	if err := d.Send(ctx, n); err != nil {
		return n, err
	}
	return n, nil
}

// SendOnce sends a templated notification at most once per dedup key. A
// repeated key is a no-op returning (nil, nil). Failed sends do not consume
// the key, so the next sweep retries them.
func (d *Dispatcher) SendOnce(ctx context.Context, dedupKey, templateID string, data map[string]string, recipient string) (*Notification, error) {
	d.mu.RLock()
	sent := d.sentKeys[dedupKey]
	d.mu.RUnlock()
	if sent {
		return nil, nil
	}

	n, err := d.SendFromTemplate(ctx, templateID, data, recipient)
	if err != nil {
		return n, err
	}

	d.mu.Lock()
	d.sentKeys[dedupKey] = true
	d.mu.Unlock()

	return n, nil
}

// Get retrieves a notification by ID.
func (d *Dispatcher) Get(_ context.Context, id string) (*Notification, error) {
	d.mu.RLock()
	n, ok := d.notifications[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("notification %q not found", id)
	}
	return n, nil
}

// ListByRecipient returns notifications for a recipient, up to limit.
func (d *Dispatcher) ListByRecipient(_ context.Context, recipient string, limit int) ([]*Notification, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*Notification
	for _, n := range d.notifications {
		if n.Recipient == recipient {
			result = append(result, n)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// Retry re-sends a failed notification.
func (d *Dispatcher) Retry(ctx context.Context, id string) error {
	d.mu.RLock()
	n, ok := d.notifications[id]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("notification %q not found", id)
	}
	if n.Status != "failed" {
		return fmt.Errorf("notification %q is not in failed status (current: %s)", id, n.Status)
	}

	var sendErr error
	switch n.Channel {
	case ChannelEmail:
		sendErr = d.emailSender.SendEmail(ctx, n.Recipient, n.Subject, n.Body)
	case ChannelSMS:
		sendErr = d.smsSender.SendSMS(ctx, n.Recipient, n.Body)
	case ChannelDashboard:
		sendErr = d.dashboard.Publish(ctx, n.Recipient, n.Subject, n.Body, n.Priority)
	default:
		sendErr = fmt.Errorf("unsupported notification channel: %s", n.Channel)
	}

	d.mu.Lock()
	if sendErr != nil {
		n.Status = "failed"
		n.Error = sendErr.Error()
	} else {
		n.Status = "sent"
		sentAt := time.Now().UTC()
		n.SentAt = &sentAt
		n.Error = ""
	}
	d.mu.Unlock()

	return sendErr
}

// Stats returns counts of notifications grouped by status.
func (d *Dispatcher) Stats(_ context.Context) map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := make(map[string]int)
	for _, n := range d.notifications {
		stats[n.Status]++
	}
	return stats
}

// MockEmailSender, MockSMSSender, and MockDashboard are test doubles.

type EmailCall struct {
	To      string
	Subject string
	Body    string
}

type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}

type SMSCall struct {
	To   string
	Body string
}

type MockSMSSender struct {
	mu         sync.Mutex
	calls      []SMSCall
	ShouldFail bool
	FailError  string
}

func (m *MockSMSSender) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SMSCall{To: to, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

func (m *MockSMSSender) Calls() []SMSCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SMSCall, len(m.calls))
	copy(out, m.calls)
	return out
}

type DashboardCall struct {
	Recipient string
	Subject   string
	Body      string
	Priority  Priority
}

type MockDashboard struct {
	mu         sync.Mutex
	calls      []DashboardCall
	ShouldFail bool
	FailError  string
}

func (m *MockDashboard) Publish(_ context.Context, recipient, subject, body string, priority Priority) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, DashboardCall{Recipient: recipient, Subject: subject, Body: body, Priority: priority})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

func (m *MockDashboard) Calls() []DashboardCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DashboardCall, len(m.calls))
	copy(out, m.calls)
	return out
}
