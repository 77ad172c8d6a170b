package config

import "strings"

// envKeyReplacer maps nested keys to environment names:
// android.sdk_root -> PROVISION_ANDROID_SDK_ROOT.
var envKeyReplacer = strings.NewReplacer(".", "_")
