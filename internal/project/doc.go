// Package project reads .cocos-project.json, the manifest at the root of a
// game project. It resolves the project language, the engine directory and
// version, the custom step file, and the native project of each platform.
package project
