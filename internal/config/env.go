package config

import "strings"

// envReplacer maps nested keys onto environment names: web.tools_dir → WEB_TOOLS_DIR.
var envReplacer = strings.NewReplacer(".", "_", "-", "_")
