package config

import (
	"os"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsListOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []string
	}{
		{"single broker", "localhost:9092", []string{"localhost:9092"}},
		{"multiple brokers with spaces", "a:9092, b:9092 ,c:9092", []string{"a:9092", "b:9092", "c:9092"}},
		{"trailing comma ignored", "a:9092,", []string{"a:9092"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			os.Setenv("TEST_LIST", tc.envValue)
			defer os.Unsetenv("TEST_LIST")

			result := getEnvAsListOrDefault("TEST_LIST", nil)
			if len(result) != len(tc.expected) {
				t.Fatalf("Expected %d items, got %d", len(tc.expected), len(result))
			}
			for i := range result {
				if result[i] != tc.expected[i] {
					t.Errorf("Item %d: expected %q, got %q", i, tc.expected[i], result[i])
				}
			}
		})
	}
}

func TestGetEnvAsListOrDefault_Empty(t *testing.T) {
	os.Unsetenv("TEST_LIST_EMPTY")
	result := getEnvAsListOrDefault("TEST_LIST_EMPTY", nil)
	if result != nil {
		t.Errorf("Expected nil for unset variable, got %v", result)
	}
}

func TestLoadPoolDefaults(t *testing.T) {
	for k, v := range map[string]string{
		"DATABASE_URL":       "postgres://localhost/praxis",
		"REDIS_URL":          "redis://localhost:6379",
		"JWT_SECRET":         "secret",
		"OPENROUTER_API_KEY": "key",
	} {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	cfg := Load()
	if cfg.DBMaxConns != 25 {
		t.Errorf("Expected DBMaxConns 25, got %d", cfg.DBMaxConns)
	}
	if cfg.DBMinConns != 5 {
		t.Errorf("Expected DBMinConns 5, got %d", cfg.DBMinConns)
	}
	if cfg.RedisPoolSize != 0 {
		t.Errorf("Expected RedisPoolSize 0 (library default), got %d", cfg.RedisPoolSize)
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("TEST_REQUIRED", "value123")
	defer os.Unsetenv("TEST_REQUIRED")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}
