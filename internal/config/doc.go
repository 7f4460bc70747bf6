// Package config provides conduit's configuration manager: a YAML file
// merged over built-in defaults, dotted-key lookups, runtime overrides,
// and an fsnotify-based file watcher that reloads on change. Overrides
// set at runtime survive a reload; nothing is ever written back to disk.
package config
