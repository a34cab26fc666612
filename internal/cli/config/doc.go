// Package config defines the mulligan-cli configuration.
//
// Values are resolved lowest to highest priority from built-in defaults,
// ~/.mulligan/cli.yaml, a .env file in the working directory, MULLIGAN_*
// environment variables and finally command line flags:
//
//	api.url              MULLIGAN_API_URL
//	api.auth_scheme      MULLIGAN_API_AUTH_SCHEME
//	store.backend        MULLIGAN_STORE_BACKEND   (file, badger, memory)
//	store.passphrase     MULLIGAN_STORE_PASSPHRASE
//	output.format        MULLIGAN_OUTPUT_FORMAT   (table, json, yaml)
package config
