// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory when set. Tests
// use it because os.UserHomeDir ignores HOME on some platforms.
var configDirOverride string

// Reset clears SetConfigDirOverride.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride makes ConfigDir return dir. Intended for tests.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
