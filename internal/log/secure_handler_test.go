package log

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

const (
	testWebhook  = "https://discord.com/api/webhooks/123456789012345678/AbCdEf_ghIJ-klmnop"
	testBotToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1"
)

// TestSecureHandler_SanitizesSensitiveKeys tests that sensitive keys are sanitized.
func TestSecureHandler_SanitizesSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "bot_token key is sanitized", key: "bot_token", value: "plain-value-1", wantMask: true},
		{name: "webhook key is sanitized", key: "webhook", value: "plain-value-2", wantMask: true},
		{name: "Discord_Webhook key (mixed case) is sanitized", key: "Discord_Webhook", value: "plain-value-3", wantMask: true},
		{name: "key containing token is sanitized", key: "telegram_bot_token", value: "plain-value-4", wantMask: true},
		{name: "password key is sanitized", key: "password", value: "plain-value-5", wantMask: true},
		{name: "unit key is NOT sanitized", key: "unit", value: "0005_offers_url_not_null", wantMask: false},
		{name: "key column attribute is NOT sanitized", key: "key", value: "id", wantMask: false},
		{name: "table key is NOT sanitized", key: "table", value: "notifications", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true, false)

			logger.Info("test message", tt.key, tt.value)

			output := buf.String()
			if tt.wantMask {
				if strings.Contains(output, tt.value) {
					t.Errorf("expected value %q to be masked, but found in output: %s", tt.value, output)
				}
				if !strings.Contains(output, MaskValue) {
					t.Errorf("expected mask value %q in output, but not found: %s", MaskValue, output)
				}
			} else if !strings.Contains(output, tt.value) {
				t.Errorf("expected value %q to be present in output, but not found: %s", tt.value, output)
			}
		})
	}
}

// TestSecureHandler_RedactsEmbeddedSecrets tests that secrets inside other
// values are replaced while the rest of the value is kept.
func TestSecureHandler_RedactsEmbeddedSecrets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		log    func(*slog.Logger)
		secret string
		keep   string
	}{
		{
			name:   "webhook URL in a target attribute",
			log:    func(l *slog.Logger) { l.Info("subscription", "target", testWebhook) },
			secret: "AbCdEf_ghIJ-klmnop",
			keep:   "target=",
		},
		{
			name:   "bot token in the message",
			log:    func(l *slog.Logger) { l.Warn("telegram rejected bot " + testBotToken + " with 401") },
			secret: testBotToken,
			keep:   "with 401",
		},
		{
			name: "webhook URL in an error",
			log: func(l *slog.Logger) {
				l.Error("delivery failed", "error", fmt.Errorf("post %s: %w", testWebhook, errors.New("timeout")))
			},
			secret: "AbCdEf_ghIJ-klmnop",
			keep:   "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.log(NewSecureLogger(&buf, false, false))

			output := buf.String()
			if strings.Contains(output, tt.secret) {
				t.Errorf("secret leaked: %s", output)
			}
			if !strings.Contains(output, MaskValue) || !strings.Contains(output, tt.keep) {
				t.Errorf("unexpected output: %s", output)
			}
		})
	}
}

// TestSecureHandler_LogLevels tests that verbose toggles debug output.
func TestSecureHandler_LogLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		verbose    bool
		logFunc    func(*slog.Logger)
		message    string
		shouldShow bool
	}{
		{name: "debug hidden without verbose", verbose: false, logFunc: func(l *slog.Logger) { l.Debug("debug msg") }, message: "debug msg", shouldShow: false},
		{name: "debug shown with verbose", verbose: true, logFunc: func(l *slog.Logger) { l.Debug("debug msg") }, message: "debug msg", shouldShow: true},
		{name: "info shown without verbose", verbose: false, logFunc: func(l *slog.Logger) { l.Info("info msg") }, message: "info msg", shouldShow: true},
		{name: "error always shown", verbose: false, logFunc: func(l *slog.Logger) { l.Error("error msg") }, message: "error msg", shouldShow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.logFunc(NewSecureLogger(&buf, tt.verbose, false))

			if got := strings.Contains(buf.String(), tt.message); got != tt.shouldShow {
				t.Errorf("message shown = %v, want %v: %s", got, tt.shouldShow, buf.String())
			}
		})
	}
}

// TestSecureHandler_WithAttrs tests that WithAttrs sanitizes attributes.
func TestSecureHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true, false)

	logger.With("webhook_url", testWebhook).Info("test message")

	output := buf.String()
	if strings.Contains(output, testWebhook) {
		t.Errorf("expected webhook to be masked in WithAttrs, but found in output: %s", output)
	}
	if !strings.Contains(output, MaskValue) {
		t.Errorf("expected mask value in output, but not found: %s", output)
	}
}

// TestSecureHandler_WithGroup tests that grouped attributes are sanitized.
func TestSecureHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true, false)

	logger.WithGroup("subscription").Info("test message",
		slog.Group("target", "platform", "telegram", "bot_token", "hidden-value"))

	output := buf.String()
	if !strings.Contains(output, "telegram") {
		t.Errorf("expected platform to be visible, but not found in output: %s", output)
	}
	if strings.Contains(output, "hidden-value") {
		t.Errorf("expected bot token to be masked, but found in output: %s", output)
	}
}

// TestNewSecureLogger_Color tests the terminal handler.
func TestNewSecureLogger_Color(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSecureLogger(&buf, false, true).Info("migration applied", "unit", "0002_create_notifications", "target", testWebhook)

	output := buf.String()
	if !strings.Contains(output, "migration applied") || !strings.Contains(output, "0002_create_notifications") {
		t.Errorf("unexpected output: %s", output)
	}
	if !strings.Contains(output, "\x1b[") {
		t.Errorf("expected ANSI escape codes in output: %q", output)
	}
	if strings.Contains(output, "AbCdEf_ghIJ-klmnop") {
		t.Errorf("secret leaked: %s", output)
	}
}

// TestNewSecureJSONLogger tests JSON logger creation.
func TestNewSecureJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureJSONLogger(&buf, true)

	logger.Info("test message", "bot_token", "plain-secret")

	output := buf.String()
	if !strings.HasPrefix(output, "{") || !strings.Contains(output, `"msg":"test message"`) {
		t.Errorf("expected JSON format, but got: %s", output)
	}
	if strings.Contains(output, "plain-secret") {
		t.Errorf("expected bot token to be masked, but found in output: %s", output)
	}
}

// TestNewSecureHandler_NilHandler tests the fallback to the default handler.
func TestNewSecureHandler_NilHandler(t *testing.T) {
	t.Parallel()

	h := NewSecureHandler(nil)
	if h.handler == nil {
		t.Error("expected the default handler")
	}
}

// TestRedact tests the Redact helper.
func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "discord webhook", input: "posting to " + testWebhook, want: "posting to " + MaskValue},
		{name: "discordapp webhook", input: "https://discordapp.com/api/webhooks/1/x_Y-z", want: MaskValue},
		{name: "telegram bot token", input: "bot" + testBotToken + "/sendMessage", want: "bot" + MaskValue + "/sendMessage"},
		{name: "bearer token", input: "Authorization: Bearer abc.def", want: "Authorization: " + MaskValue},
		{name: "offer url is kept", input: "https://www.otodom.pl/pl/oferta/123", want: "https://www.otodom.pl/pl/oferta/123"},
		{name: "timestamp is kept", input: "2024-03-01T10:20:00.000Z", want: "2024-03-01T10:20:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Redact(tt.input); got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestIsSensitiveKey tests the isSensitiveKey helper.
func TestIsSensitiveKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want bool
	}{
		{key: "webhook", want: true},
		{key: "BOT_TOKEN", want: true},
		{key: "my_secret_value", want: true},
		{key: "primary_key", want: false},
		{key: "platform", want: false},
		{key: "run_id", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			if got := isSensitiveKey(tt.key); got != tt.want {
				t.Errorf("isSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
