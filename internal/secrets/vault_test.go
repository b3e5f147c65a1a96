package secrets_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/cloutagent/cloutagent/internal/secrets"
)

func staticLoader(values map[string]string) secrets.Loader {
	return func() (map[string]string, error) {
		return values, nil
	}
}

func TestNewVaultLoadsOnce(t *testing.T) {
	v, err := secrets.NewVault(staticLoader(map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant-test",
	}))
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if got := v.Get("ANTHROPIC_API_KEY"); got != "sk-ant-test" {
		t.Fatalf("expected credential, got %q", got)
	}
}

func TestNewVaultFailsFast(t *testing.T) {
	_, err := secrets.NewVault(func() (map[string]string, error) {
		return nil, errors.New("source unavailable")
	})
	if err == nil {
		t.Fatal("expected error when the initial load fails")
	}
}

func TestVaultGetMissingKey(t *testing.T) {
	v, _ := secrets.NewVault(staticLoader(map[string]string{"PRESENT": "yes"}))
	if got := v.Get("ABSENT"); got != "" {
		t.Fatalf("expected empty string for a missing key, got %q", got)
	}
}

func TestVaultReloadSwapsValues(t *testing.T) {
	loads := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		loads++
		if loads == 1 {
			return map[string]string{"ANTHROPIC_API_KEY": "sk-rotating-1"}, nil
		}
		return map[string]string{"ANTHROPIC_API_KEY": "sk-rotating-2"}, nil
	})

	if err := v.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := v.Get("ANTHROPIC_API_KEY"); got != "sk-rotating-2" {
		t.Fatalf("expected rotated credential, got %q", got)
	}
}

func TestVaultReloadFailurePreservesValues(t *testing.T) {
	loads := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		loads++
		if loads == 1 {
			return map[string]string{"ANTHROPIC_API_KEY": "sk-stable"}, nil
		}
		return nil, errors.New("source unavailable")
	})

	if err := v.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := v.Get("ANTHROPIC_API_KEY"); got != "sk-stable" {
		t.Fatalf("expected old credential after failed reload, got %q", got)
	}
}

func TestVaultConcurrentReadsAndReloads(t *testing.T) {
	v, _ := secrets.NewVault(staticLoader(map[string]string{"K": "V"}))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = v.Get("K")
		}()
		go func() {
			defer wg.Done()
			_ = v.Reload()
		}()
	}
	wg.Wait()
}

func TestVaultRedacted(t *testing.T) {
	v, _ := secrets.NewVault(staticLoader(map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant-abcdef123456",
		"SHORT":             "ab",
	}))

	if got := v.Redacted("ANTHROPIC_API_KEY"); got != "sk****" {
		t.Errorf("expected sk****, got %q", got)
	}
	if got := v.Redacted("SHORT"); got != "****" {
		t.Errorf("short values must be fully masked, got %q", got)
	}
	if got := v.Redacted("ABSENT"); got != "" {
		t.Errorf("expected empty string for a missing key, got %q", got)
	}
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("CLOUTAGENT_TEST_KEY", "sk-from-env")
	loader := secrets.EnvLoader("CLOUTAGENT_TEST_KEY", "CLOUTAGENT_TEST_ABSENT")

	values, err := loader()
	if err != nil {
		t.Fatalf("EnvLoader: %v", err)
	}
	if values["CLOUTAGENT_TEST_KEY"] != "sk-from-env" {
		t.Fatalf("expected env value, got %q", values["CLOUTAGENT_TEST_KEY"])
	}
	if _, ok := values["CLOUTAGENT_TEST_ABSENT"]; ok {
		t.Fatal("expected unset env var to be omitted")
	}
}
