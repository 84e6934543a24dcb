// Package config provides user configuration management for starline.
//
// This package manages a YAML settings file holding the defaults the CLI
// falls back to (keystore location, transmission repeat count, serial
// radio, bridge address) and nicknames for known remotes.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/starline/config.yaml or $HOME/.config/starline/config.yaml
//   - macOS: $HOME/.config/starline/config.yaml
//   - Windows: %LOCALAPPDATA%\starline\config.yaml
//
// A missing file is not an error: Load returns the defaults.
//
// # Usage Example
//
//	settings, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	settings.SetRemoteNickname(0x112233, "Garage fob")
//
//	// Save changes atomically
//	if err := settings.Save(); err != nil {
//	    log.Fatal(err)
//	}
package config
