// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the stockverify client configuration.
//
// Configuration is assembled from environment variables, command-line flags
// and an optional JSON file, merged in that order by a small builder (later
// non-zero values win via mergo). The main
// entry point is [GetClientConfig], which maps the merged structured config
// onto the client view consumed by the engine at startup.
package config
