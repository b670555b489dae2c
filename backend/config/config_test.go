package config

import (
	"os"
	"testing"
	"time"
)

func TestConfig_SessionTimeout(t *testing.T) {
	C = Config{}

	os.Setenv("SESSION_TIMEOUT", "1h")
	defer os.Unsetenv("SESSION_TIMEOUT")

	if err := Load(); err != nil {
		t.Fatal(err)
	}

	expected := 1 * time.Hour
	if C.Session.Timeout != expected {
		t.Errorf("Expected session timeout %v, got %v", expected, C.Session.Timeout)
	}
}

func TestConfig_SessionTimeoutDefault(t *testing.T) {
	C = Config{}

	os.Unsetenv("SESSION_TIMEOUT")

	if err := Load(); err != nil {
		t.Fatal(err)
	}

	expected := 24 * time.Hour
	if C.Session.Timeout != expected {
		t.Errorf("Expected default session timeout %v, got %v", expected, C.Session.Timeout)
	}
}

func TestConfig_LogCollectorFromEnv(t *testing.T) {
	t.Setenv("LOG_ENDPOINT", "http://collector.internal/logs")
	t.Setenv("LOG_TOKEN", "token-from-env")
	t.Setenv("LOG_STACK", "backend")

	if err := Load(); err != nil {
		t.Fatal(err)
	}

	if C.Logs.Endpoint != "http://collector.internal/logs" {
		t.Errorf("Expected endpoint from env, got %q", C.Logs.Endpoint)
	}
	if C.Logs.Token != "token-from-env" {
		t.Errorf("Expected token from env, got %q", C.Logs.Token)
	}
	if C.Logs.Stack != "backend" {
		t.Errorf("Expected stack from env, got %q", C.Logs.Stack)
	}
}

func TestConfig_AuthDefaults(t *testing.T) {
	if err := Load(); err != nil {
		t.Fatal(err)
	}

	if C.Auth.Backend != "mock" {
		t.Errorf("Expected mock backend by default, got %q", C.Auth.Backend)
	}
	if C.Auth.DemoEmail != "demo@example.com" || C.Auth.DemoPassword != "password123" {
		t.Errorf("Unexpected demo credentials %q/%q", C.Auth.DemoEmail, C.Auth.DemoPassword)
	}
	if C.Auth.LoginDelay != time.Second {
		t.Errorf("Expected 1s login delay, got %v", C.Auth.LoginDelay)
	}
	if C.Auth.UpdateDelay != 500*time.Millisecond {
		t.Errorf("Expected 500ms update delay, got %v", C.Auth.UpdateDelay)
	}
}

func TestConfig_RejectsUnknownAuthBackend(t *testing.T) {
	t.Setenv("AUTH_BACKEND", "ldap")

	if err := Load(); err == nil {
		t.Error("Load should fail for an unknown auth backend")
	}
}

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"1024":  1024,
		"1KB":   1024,
		"500mb": 500 * 1024 * 1024,
		"5GB":   5 * 1024 * 1024 * 1024,
		"1.5KB": 1536,
	}

	for in, want := range cases {
		got, err := ParseSize(in)
		if err != nil {
			t.Errorf("ParseSize(%q) returned error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseSize_Invalid(t *testing.T) {
	for _, in := range []string{"", "lots", "5 PB", "-1GB"} {
		if _, err := ParseSize(in); err == nil {
			t.Errorf("ParseSize(%q) should fail", in)
		}
	}
}

func TestConfig_RejectsNonPositiveConnectivityInterval(t *testing.T) {
	for _, v := range []string{"0s", "-1s"} {
		t.Run(v, func(t *testing.T) {
			C = Config{}
			t.Setenv("CONNECTIVITY_INTERVAL", v)

			if err := Load(); err == nil {
				t.Errorf("Expected error for CONNECTIVITY_INTERVAL=%s", v)
			}
		})
	}
}

func TestConfig_ConnectivityIntervalFromEnv(t *testing.T) {
	C = Config{}
	t.Setenv("CONNECTIVITY_INTERVAL", "30s")

	if err := Load(); err != nil {
		t.Fatal(err)
	}
	if C.Connectivity.Interval != 30*time.Second {
		t.Errorf("Expected interval 30s, got %v", C.Connectivity.Interval)
	}
}
