package common

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Platform.Name != constants.PlatformIOS {
		t.Errorf("platform = %q", cfg.Platform.Name)
	}
	if cfg.Orchestrator.OnboardingLimit != constants.OnboardingShareLimit {
		t.Errorf("onboarding limit = %d", cfg.Orchestrator.OnboardingLimit)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("timeout = %s", cfg.API.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "platform:\n  name: android\n  installed_schemes: [bank-a, bank-b]\napi:\n  timeout: 5s\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAYMENTS_SERVER_GRPC_ADDR", ":9999")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Platform.Name != constants.PlatformAndroid {
		t.Errorf("platform = %q", cfg.Platform.Name)
	}
	if len(cfg.Platform.InstalledSchemes) != 2 || cfg.Platform.InstalledSchemes[1] != "bank-b" {
		t.Errorf("schemes = %v", cfg.Platform.InstalledSchemes)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("timeout = %s", cfg.API.Timeout)
	}
	if cfg.Server.GRPCAddr != ":9999" {
		t.Errorf("addr = %q", cfg.Server.GRPCAddr)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != "CONFIG_ERROR" {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg, _ := LoadConfig("")
	cfg.API.PaymentBaseURL = ""
	cfg.Platform.Name = "windows"
	cfg.Orchestrator.OnboardingLimit = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"api.payment_base_url", "platform.name", "onboarding_limit"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList([]string{"a, b", "", "c"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("splitList = %v", got)
	}
}

func TestWatchConfigReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("platform:\n  installed_schemes: [bank-a]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	changes := make(chan *Config, 4)
	if err := WatchConfig(path, nil, func(c *Config) { changes <- c }); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("platform:\n  installed_schemes: [bank-a, bank-b]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if len(c.Platform.InstalledSchemes) == 2 {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatchConfigRequiresFile(t *testing.T) {
	if err := WatchConfig("", nil, func(*Config) {}); err == nil {
		t.Fatal("expected error")
	}
}
