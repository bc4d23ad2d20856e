package types

// Setting keys persisted in the settings table. Settings are a flat
// string-keyed, string-valued map with last-write-wins semantics per key.
const (
	// SettingMigrationV1 is the one-shot legacy import completion flag.
	// Once set, the legacy importer is permanently a no-op.
	SettingMigrationV1 = "migrationV1"

	// SettingNearbyRadiusM is the nearby-search radius in meters.
	SettingNearbyRadiusM = "nearbyRadiusM"

	// Login streak counters.
	SettingLastLoginDate  = "lastLoginDate"
	SettingStreakDays     = "streakDays"
	SettingMaxStreakDays  = "maxStreakDays"
	SettingTotalLoginDays = "totalLoginDays"

	// SettingThemeMode is the UI theme mode (system, light, dark).
	SettingThemeMode = "themeMode"

	// SettingPostLimitPurchased is the feature-purchase flag ("1" when owned).
	SettingPostLimitPurchased = "postLimitPurchased"

	// SettingHasSeenOnboarding marks first-run onboarding as completed.
	SettingHasSeenOnboarding = "hasSeenOnboarding"
)

// Defaults seeded by the legacy importer when the keys are absent.
const (
	DefaultNearbyRadiusM = "300"
	DefaultThemeMode     = "system"
)
