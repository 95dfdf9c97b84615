package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("REPORT_TTL_SECONDS", "")
	t.Setenv("SALARY_REMINDER_INTERVAL_HOURS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.ReportTTLSeconds != 300 {
		t.Fatalf("expected default report TTL 300, got %d", cfg.ReportTTLSeconds)
	}
	if cfg.ReminderIntervalHours != 24 {
		t.Fatalf("expected default reminder interval 24, got %d", cfg.ReminderIntervalHours)
	}
}
