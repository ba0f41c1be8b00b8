// Package config manages user settings stored at ~/.ccbuild/config.yaml.
// Settings supply defaults for compile flags (jobs, Visual Studio version,
// android API level, script compiler) and logging; flags always win.
package config
