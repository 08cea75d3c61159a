package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func newTestDispatcher() (*Dispatcher, *MockEmailSender, *MockSMSSender, *MockDashboard) {
	email := &MockEmailSender{}
	sms := &MockSMSSender{}
	dash := &MockDashboard{}
	d := NewDispatcher(email, sms, dash, NewTemplateEngine())
	return d, email, sms, dash
}

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{
		ID:      "custom",
		Subject: "Hello {{name}}",
		Body:    "Your surgery is on {{date}}.",
		Channel: ChannelEmail,
	})

	subject, body, err := e.Render("custom", map[string]string{
		"name": "Dana",
		"date": "2026-10-15",
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Hello Dana" {
		t.Errorf("unexpected subject: %q", subject)
	}
	if body != "Your surgery is on 2026-10-15." {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	e := NewTemplateEngine()
	_, _, err := e.Render("nonexistent", nil)
	if err == nil {
		t.Error("expected error for missing template")
	}
}

func TestTemplateEngine_BuiltInTemplates(t *testing.T) {
	e := NewTemplateEngine()

	builtIn := []struct {
		id      string
		channel Channel
	}{
		{"booking-confirmed", ChannelEmail},
		{"booking-cancelled", ChannelEmail},
		{"task-overdue", ChannelDashboard},
		{"requirement-reminder", ChannelEmail},
		{"requirement-urgent", ChannelSMS},
		{"requirement-final", ChannelDashboard},
		{"surgery-blocked", ChannelDashboard},
	}
	for _, tc := range builtIn {
		tpl, ok := e.Lookup(tc.id)
		if !ok {
			t.Errorf("expected built-in template %q", tc.id)
			continue
		}
		if tpl.Channel != tc.channel {
			t.Errorf("template %q: expected channel %s, got %s", tc.id, tc.channel, tpl.Channel)
		}
	}
}

func TestTemplateEngine_RenderMissingKey(t *testing.T) {
	e := NewTemplateEngine()

	// Missing keys stay as placeholders.
	subject, _, err := e.Render("booking-confirmed", map[string]string{"event_type": "CONSULT30"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Your CONSULT30 appointment is confirmed" {
		t.Errorf("unexpected subject: %q", subject)
	}
}

func TestDispatcher_SendEmail(t *testing.T) {
	d, email, _, _ := newTestDispatcher()

	n := &Notification{
		Channel:   ChannelEmail,
		Recipient: "patient@example.com",
		Subject:   "Reminder",
		Body:      "See you soon",
	}
	if err := d.Send(context.Background(), n); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if n.Status != "sent" {
		t.Errorf("expected status sent, got %s", n.Status)
	}
	if n.SentAt == nil {
		t.Error("expected SentAt to be set")
	}
	if len(email.Calls()) != 1 {
		t.Fatalf("expected 1 email call, got %d", len(email.Calls()))
	}
}

func TestDispatcher_SendDashboard(t *testing.T) {
	d, _, _, dash := newTestDispatcher()

	n := &Notification{
		Channel:   ChannelDashboard,
		Recipient: "surgical-team",
		Subject:   "Surgery blocked",
		Body:      "requirements missing",
		Priority:  PriorityUrgent,
	}
	if err := d.Send(context.Background(), n); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	calls := dash.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 dashboard call, got %d", len(calls))
	}
	if calls[0].Priority != PriorityUrgent {
		t.Errorf("expected urgent priority, got %s", calls[0].Priority)
	}
}

func TestDispatcher_SendFailed(t *testing.T) {
	d, email, _, _ := newTestDispatcher()
	email.ShouldFail = true
	email.FailError = "smtp unavailable"

	n := &Notification{Channel: ChannelEmail, Recipient: "p@example.com", Body: "x"}
	err := d.Send(context.Background(), n)
	if err == nil {
		t.Fatal("expected send error")
	}
	if n.Status != "failed" {
		t.Errorf("expected status failed, got %s", n.Status)
	}
	if n.Error != "smtp unavailable" {
		t.Errorf("expected recorded error, got %q", n.Error)
	}
}

func TestDispatcher_SendFromTemplate(t *testing.T) {
	d, _, sms, _ := newTestDispatcher()

	n, err := d.SendFromTemplate(context.Background(), "requirement-urgent", map[string]string{
		"patient_name": "Dana",
		"requirement":  "BLOODWORK",
		"surgery_date": "2026-10-15",
		"days_left":    "3",
	}, "+15550001111")
	if err != nil {
		t.Fatalf("SendFromTemplate() error: %v", err)
	}

	if n.Channel != ChannelSMS {
		t.Errorf("expected sms channel from template, got %s", n.Channel)
	}
	if n.Priority != PriorityHigh {
		t.Errorf("expected high priority from template, got %s", n.Priority)
	}

	calls := sms.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 sms call, got %d", len(calls))
	}
	if !strings.Contains(calls[0].Body, "BLOODWORK") {
		t.Errorf("expected rendered body, got %q", calls[0].Body)
	}
}

func TestDispatcher_SendOnce_Deduplicates(t *testing.T) {
	d, email, _, _ := newTestDispatcher()

	data := map[string]string{"patient_name": "Dana", "requirement": "ECG", "surgery_date": "2026-10-15"}
	key := "surg-1:ECG:7d"

	n, err := d.SendOnce(context.Background(), key, "requirement-reminder", data, "dana@example.com")
	if err != nil {
		t.Fatalf("first SendOnce() error: %v", err)
	}
	if n == nil {
		t.Fatal("expected notification from first send")
	}

	n, err = d.SendOnce(context.Background(), key, "requirement-reminder", data, "dana@example.com")
	if err != nil {
		t.Fatalf("second SendOnce() error: %v", err)
	}
	if n != nil {
		t.Error("expected nil notification for deduplicated send")
	}

	if len(email.Calls()) != 1 {
		t.Errorf("expected exactly 1 email call, got %d", len(email.Calls()))
	}
}

func TestDispatcher_SendOnce_FailureDoesNotConsumeKey(t *testing.T) {
	d, email, _, _ := newTestDispatcher()
	email.ShouldFail = true
	email.FailError = "smtp unavailable"

	key := "surg-1:ECG:7d"
	data := map[string]string{"requirement": "ECG"}

	if _, err := d.SendOnce(context.Background(), key, "requirement-reminder", data, "dana@example.com"); err == nil {
		t.Fatal("expected send error")
	}

	// After the sender recovers, the same key sends again.
	email.ShouldFail = false
	n, err := d.SendOnce(context.Background(), key, "requirement-reminder", data, "dana@example.com")
	if err != nil {
		t.Fatalf("retry SendOnce() error: %v", err)
	}
	if n == nil {
		t.Error("expected notification after sender recovered")
	}
}

func TestDispatcher_Retry(t *testing.T) {
	d, email, _, _ := newTestDispatcher()
	email.ShouldFail = true
	email.FailError = "smtp unavailable"

	n := &Notification{Channel: ChannelEmail, Recipient: "p@example.com", Body: "x"}
	_ = d.Send(context.Background(), n)

	email.ShouldFail = false
	if err := d.Retry(context.Background(), n.ID); err != nil {
		t.Fatalf("Retry() error: %v", err)
	}

	got, err := d.Get(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Status != "sent" {
		t.Errorf("expected status sent after retry, got %s", got.Status)
	}
	if got.Error != "" {
		t.Errorf("expected cleared error, got %q", got.Error)
	}
}

func TestDispatcher_RetryNonFailed(t *testing.T) {
	d, _, _, _ := newTestDispatcher()

	n := &Notification{Channel: ChannelEmail, Recipient: "p@example.com", Body: "x"}
	_ = d.Send(context.Background(), n)

	if err := d.Retry(context.Background(), n.ID); err == nil {
		t.Error("expected error retrying a sent notification")
	}
}

func TestDispatcher_Stats(t *testing.T) {
	d, email, _, _ := newTestDispatcher()

	_ = d.Send(context.Background(), &Notification{Channel: ChannelEmail, Recipient: "a@example.com", Body: "x"})
	_ = d.Send(context.Background(), &Notification{Channel: ChannelEmail, Recipient: "b@example.com", Body: "y"})

	email.ShouldFail = true
	email.FailError = "down"
	_ = d.Send(context.Background(), &Notification{Channel: ChannelEmail, Recipient: "c@example.com", Body: "z"})

	stats := d.Stats(context.Background())
	if stats["sent"] != 2 {
		t.Errorf("expected 2 sent, got %d", stats["sent"])
	}
	if stats["failed"] != 1 {
		t.Errorf("expected 1 failed, got %d", stats["failed"])
	}
}

func TestDispatcher_ConcurrentSend(t *testing.T) {
	d, email, _, _ := newTestDispatcher()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Send(context.Background(), &Notification{
				Channel:   ChannelEmail,
				Recipient: "p@example.com",
				Body:      "x",
			})
		}()
	}
	wg.Wait()

	if len(email.Calls()) != 20 {
		t.Errorf("expected 20 email calls, got %d", len(email.Calls()))
	}
	if d.Stats(context.Background())["sent"] != 20 {
		t.Errorf("expected 20 sent notifications")
	}
}
