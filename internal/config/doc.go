// Package config manages the user configuration file for the Yeelight CLI.
//
// The configuration is a versioned YAML file under the OS config directory
// (e.g., ~/.config/yeelight/config.yaml) storing user bookkeeping for known
// bulbs - nicknames, last known addresses, models, last-seen times - and
// CLI preferences such as timeouts. Live bulb state is deliberately not
// persisted; it is read off the network every time.
//
// Writes are atomic (temp file + rename) and the global registry is loaded
// lazily, once per process.
package config
