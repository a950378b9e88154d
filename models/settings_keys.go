package models

// Keys for values stored in the app_settings table.
const (
	CustomRulesKey  = "custom_rules"
	MergedConfigKey = "merged_config"
)
