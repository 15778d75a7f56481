package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Setting keys, stored next to the groups in the storage backend.
const (
	KeyMaxGroups                = "maxGroups"
	KeyMaxInactiveGroupAgeMs    = "maxInactiveGroupAgeMs"
	KeyStorageCleanupIntervalMs = "storageCleanupIntervalMs"
	KeyIncludePinnedTabs        = "includePinnedTabs"
	KeyMinTabsForSuggestion     = "minTabsForSuggestion"
	KeyAutoBackup               = "autoBackup"
	KeyAutoBackupFrequency      = "autoBackupFrequency"
)

// SettingKeys lists every settings key in a stable order.
var SettingKeys = []string{
	KeyMaxGroups,
	KeyMaxInactiveGroupAgeMs,
	KeyStorageCleanupIntervalMs,
	KeyIncludePinnedTabs,
	KeyMinTabsForSuggestion,
	KeyAutoBackup,
	KeyAutoBackupFrequency,
}

const day = int64(24 * time.Hour / time.Millisecond)

// maxIntervalMs is the largest millisecond count that fits in a time.Duration.
const maxIntervalMs = int64(math.MaxInt64 / int64(time.Millisecond))

// Backup frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Settings controls store behavior: capacity, eviction, tab filtering and backups.
type Settings struct {
	MaxGroups                int    `json:"maxGroups"`
	MaxInactiveGroupAgeMs    int64  `json:"maxInactiveGroupAgeMs"`
	StorageCleanupIntervalMs int64  `json:"storageCleanupIntervalMs"`
	IncludePinnedTabs        bool   `json:"includePinnedTabs"`
	MinTabsForSuggestion     int    `json:"minTabsForSuggestion"`
	AutoBackup               bool   `json:"autoBackup"`
	AutoBackupFrequency      string `json:"autoBackupFrequency"`
}

// DefaultSettings returns the settings used when a key is missing.
func DefaultSettings() Settings {
	return Settings{
		MaxGroups:                50,
		MaxInactiveGroupAgeMs:    90 * day,
		StorageCleanupIntervalMs: 30 * day,
		IncludePinnedTabs:        false,
		MinTabsForSuggestion:     2,
		AutoBackup:               false,
		AutoBackupFrequency:      FrequencyWeekly,
	}
}

// CleanupInterval returns StorageCleanupIntervalMs as a duration. Values
// that are not positive or do not fit a Duration give the default interval.
func (s Settings) CleanupInterval() time.Duration {
	ms := s.StorageCleanupIntervalMs
	if ms <= 0 || ms > maxIntervalMs {
		ms = DefaultSettings().StorageCleanupIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// BackupInterval returns the wait between automatic backups.
func (s Settings) BackupInterval() time.Duration {
	switch s.AutoBackupFrequency {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// DecodeSettings builds Settings from raw stored values. Missing, undecodable
// or out-of-range values fall back to defaults and are logged at debug.
func DecodeSettings(values map[string][]byte, logger *slog.Logger) Settings {
	if logger == nil {
		logger = slog.Default()
	}
	s := DefaultSettings()

	fallback := func(key string, err error) {
		logger.Debug("setting uses default", "key", key, "error", err)
	}

	if n, ok := decodeValue[int](values, KeyMaxGroups, fallback); ok && n > 0 {
		s.MaxGroups = n
	}
	if n, ok := decodeValue[int64](values, KeyMaxInactiveGroupAgeMs, fallback); ok && n > 0 {
		s.MaxInactiveGroupAgeMs = n
	}
	if n, ok := decodeValue[int64](values, KeyStorageCleanupIntervalMs, fallback); ok && n > 0 {
		s.StorageCleanupIntervalMs = n
	}
	if b, ok := decodeValue[bool](values, KeyIncludePinnedTabs, fallback); ok {
		s.IncludePinnedTabs = b
	}
	if n, ok := decodeValue[int](values, KeyMinTabsForSuggestion, fallback); ok && n > 0 {
		s.MinTabsForSuggestion = n
	}
	if b, ok := decodeValue[bool](values, KeyAutoBackup, fallback); ok {
		s.AutoBackup = b
	}
	if f, ok := decodeValue[string](values, KeyAutoBackupFrequency, fallback); ok && validFrequency(f) {
		s.AutoBackupFrequency = f
	}
	return s
}

func decodeValue[T any](values map[string][]byte, key string, fallback func(string, error)) (T, bool) {
	var v T
	raw, ok := values[key]
	if !ok || len(raw) == 0 {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		fallback(key, err)
		return v, false
	}
	return v, true
}

// Encode serializes every setting as a JSON value keyed by setting name.
func (s Settings) Encode() map[string][]byte {
	out := make(map[string][]byte, len(SettingKeys))
	put := func(key string, v any) {
		data, _ := json.Marshal(v)
		out[key] = data
	}
	put(KeyMaxGroups, s.MaxGroups)
	put(KeyMaxInactiveGroupAgeMs, s.MaxInactiveGroupAgeMs)
	put(KeyStorageCleanupIntervalMs, s.StorageCleanupIntervalMs)
	put(KeyIncludePinnedTabs, s.IncludePinnedTabs)
	put(KeyMinTabsForSuggestion, s.MinTabsForSuggestion)
	put(KeyAutoBackup, s.AutoBackup)
	put(KeyAutoBackupFrequency, s.AutoBackupFrequency)
	return out
}

// SettingsPatch is a partial update. Nil fields are left unchanged.
type SettingsPatch struct {
	MaxGroups                *int    `json:"maxGroups,omitempty"`
	MaxInactiveGroupAgeMs    *int64  `json:"maxInactiveGroupAgeMs,omitempty"`
	StorageCleanupIntervalMs *int64  `json:"storageCleanupIntervalMs,omitempty"`
	IncludePinnedTabs        *bool   `json:"includePinnedTabs,omitempty"`
	MinTabsForSuggestion     *int    `json:"minTabsForSuggestion,omitempty"`
	AutoBackup               *bool   `json:"autoBackup,omitempty"`
	AutoBackupFrequency      *string `json:"autoBackupFrequency,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.MaxGroups == nil && p.MaxInactiveGroupAgeMs == nil &&
		p.StorageCleanupIntervalMs == nil && p.IncludePinnedTabs == nil &&
		p.MinTabsForSuggestion == nil && p.AutoBackup == nil &&
		p.AutoBackupFrequency == nil
}

// Apply returns s with the patch applied, or an error naming the first invalid field.
func (p SettingsPatch) Apply(s Settings) (Settings, error) {
	if p.MaxGroups != nil {
		if *p.MaxGroups <= 0 {
			return s, fmt.Errorf("%s must be positive", KeyMaxGroups)
		}
		s.MaxGroups = *p.MaxGroups
	}
	if p.MaxInactiveGroupAgeMs != nil {
		if *p.MaxInactiveGroupAgeMs <= 0 {
			return s, fmt.Errorf("%s must be positive", KeyMaxInactiveGroupAgeMs)
		}
		s.MaxInactiveGroupAgeMs = *p.MaxInactiveGroupAgeMs
	}
	if p.StorageCleanupIntervalMs != nil {
		if *p.StorageCleanupIntervalMs <= 0 {
			return s, fmt.Errorf("%s must be positive", KeyStorageCleanupIntervalMs)
		}
		if *p.StorageCleanupIntervalMs > maxIntervalMs {
			return s, fmt.Errorf("%s must be at most %d", KeyStorageCleanupIntervalMs, maxIntervalMs)
		}
		s.StorageCleanupIntervalMs = *p.StorageCleanupIntervalMs
	}
	if p.IncludePinnedTabs != nil {
		s.IncludePinnedTabs = *p.IncludePinnedTabs
	}
	if p.MinTabsForSuggestion != nil {
		if *p.MinTabsForSuggestion <= 0 {
			return s, fmt.Errorf("%s must be positive", KeyMinTabsForSuggestion)
		}
		s.MinTabsForSuggestion = *p.MinTabsForSuggestion
	}
	if p.AutoBackup != nil {
		s.AutoBackup = *p.AutoBackup
	}
	if p.AutoBackupFrequency != nil {
		if !validFrequency(*p.AutoBackupFrequency) {
			return s, fmt.Errorf("%s must be daily, weekly or monthly", KeyAutoBackupFrequency)
		}
		s.AutoBackupFrequency = *p.AutoBackupFrequency
	}
	return s, nil
}

func validFrequency(f string) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}
