// Package config provides configuration management for the provision CLI.
//
// Configuration is read by Viper from config.yaml in the working directory
// or in <XDG config>/provision, and every key can be overridden from the
// environment with the PROVISION_ prefix (android.sdk_root becomes
// PROVISION_ANDROID_SDK_ROOT).
//
//	version: 1
//	package_manager: apt        # auto | apt | dnf | pacman | brew | winget | none
//	jdk:
//	  version: 17
//	android:
//	  platform: android-34
//	  build_tools: 34.0.0
//	flutter:
//	  channel: stable
//
// Call [Init] once at startup, then [Load]. [Validate] reports every
// invalid field rather than stopping at the first one:
//
//	for _, e := range config.Validate(cfg) {
//	    fmt.Println(e)
//	}
package config
