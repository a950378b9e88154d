package database

import (
	"database/sql"
	"fmt"
	"strings"
	"submerger/models"
)

// GetSetting retrieves a specific setting value from the app_settings table.
func GetSetting(key string) (string, error) {
	var value string
	err := DB.QueryRow("SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil // Return empty string if not found, not an error
		}
		return "", fmt.Errorf("failed to get setting '%s': %w", key, err)
	}
	return value, nil
}

// SetSetting saves or updates a specific setting value in the app_settings table.
func SetSetting(key, value string) error {
	stmt, err := DB.Prepare("INSERT OR REPLACE INTO app_settings (key, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare set setting statement for key '%s': %w", key, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(key, value)
	if err != nil {
		return fmt.Errorf("failed to execute set setting for key '%s': %w", key, err)
	}
	return nil
}

// GetCustomRules returns the stored custom rules text, one rule per line.
// Empty when none have been saved.
func GetCustomRules() (string, error) {
	return GetSetting(models.CustomRulesKey)
}

// SaveCustomRules overwrites the custom rules completely. Lines are trimmed
// and blank lines dropped before storing.
func SaveCustomRules(rulesText string) error {
	var rules []string
	for _, line := range strings.Split(rulesText, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			rules = append(rules, line)
		}
	}
	return SetSetting(models.CustomRulesKey, strings.Join(rules, "\n"))
}

// GetMergedConfig returns the last persisted merged document, empty when no
// merge has been persisted yet.
func GetMergedConfig() (string, error) {
	return GetSetting(models.MergedConfigKey)
}

func SaveMergedConfig(content string) error {
	return SetSetting(models.MergedConfigKey, content)
}
