package deploy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// RequiredEnvKeys must be present and non-placeholder in a production .env.
var RequiredEnvKeys = []string{
	"API_KEYS",
	"JWT_SECRET_KEY",
	"MODEL_CONFIG_PATH",
	"DEFAULT_MODEL",
}

// placeholderMarkers flag values copied from .env.example and never filled in.
var placeholderMarkers = []string{
	"changeme",
	"change_me",
	"your-",
	"your_",
	"example",
	"<",
	"xxx",
	"todo",
}

// EnvIssue describes one problem found in an env file.
type EnvIssue struct {
	Key    string
	Reason string
}

func (i EnvIssue) String() string { return i.Key + ": " + i.Reason }

// ReadEnvFile parses a dotenv file into a map.
func ReadEnvFile(path string) (map[string]string, error) {
	vals, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return vals, nil
}

// ValidateEnv checks required keys and placeholder values. It returns the
// list of issues; an empty list means the file is deployable.
func ValidateEnv(vals map[string]string) []EnvIssue {
	var issues []EnvIssue
	for _, key := range RequiredEnvKeys {
		v, ok := vals[key]
		if !ok || strings.TrimSpace(v) == "" {
			issues = append(issues, EnvIssue{Key: key, Reason: "missing or empty"})
			continue
		}
		if isPlaceholder(v) {
			issues = append(issues, EnvIssue{Key: key, Reason: "placeholder value, replace before deploying"})
		}
	}
	return issues
}

func isPlaceholder(v string) bool {
	lv := strings.ToLower(v)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lv, marker) {
			return true
		}
	}
	return false
}

// CheckEnvFile reads and validates an env file, logging a summary.
func CheckEnvFile(path string) error {
	vals, err := ReadEnvFile(path)
	if err != nil {
		return err
	}
	issues := ValidateEnv(vals)
	if len(issues) == 0 {
		info("[env] %s: %d keys, all required values set", path, len(vals))
		return nil
	}
	for _, i := range issues {
		errl("[env] %s", i)
	}
	return fmt.Errorf("%s: %d issue(s) found", path, len(issues))
}

// ShowEnvFile prints keys sorted with secrets redacted.
func ShowEnvFile(path string) error {
	vals, err := ReadEnvFile(path)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := vals[k]
		if isSecretKey(k) {
			v = redact(v)
		}
		fmt.Printf("%s=%s\n", k, v)
	}
	return nil
}

func isSecretKey(k string) bool {
	lk := strings.ToLower(k)
	return strings.Contains(lk, "key") || strings.Contains(lk, "secret") ||
		strings.Contains(lk, "password") || strings.Contains(lk, "token")
}

func redact(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + strings.Repeat("*", len(v)-4) + v[len(v)-2:]
}
