// Package confloader loads layered configuration with koanf and watches
// files with fsnotify.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (applied by the caller via LoadMap)
//  2. Environment variables (MULLIGAN_SECTION_KEY)
//  3. .env file entries not already present in the environment
//  4. The YAML configuration file
//  5. Defaults
package confloader
