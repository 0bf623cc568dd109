package config

import "time"

// Registry represents the entire user configuration file.
// This stores user-defined metadata for bulbs and application preferences,
// never live device property state (that is always read off the network).
type Registry struct {
	Version     int              `yaml:"version"`
	Bulbs       map[string]*Bulb `yaml:"bulbs,omitempty"` // Keyed by device identifier
	Preferences *Preferences     `yaml:"preferences,omitempty"`
}

// Bulb represents user-defined metadata for a single bulb.
// This is keyed by the bulb's device identifier in the Registry.
type Bulb struct {
	Nickname    string    `yaml:"nickname,omitempty"`     // User-friendly name
	LastAddress string    `yaml:"last_address,omitempty"` // Last known host:port of the control connection
	Model       string    `yaml:"model,omitempty"`        // Bulb model (e.g., "color", "mono")
	LastSeen    time.Time `yaml:"last_seen,omitempty"`    // Last discovery/connection time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DiscoverTimeout int `yaml:"discover_timeout"` // Discovery reply window in seconds
	CommandTimeout  int `yaml:"command_timeout"`  // Command reply deadline in seconds
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Bulbs:   make(map[string]*Bulb),
		Preferences: &Preferences{
			DiscoverTimeout: 3,
			CommandTimeout:  5,
		},
	}
}

// GetBulb retrieves bulb metadata by device identifier.
// Returns nil if the bulb doesn't exist in the registry.
func (r *Registry) GetBulb(id string) *Bulb {
	return r.Bulbs[id]
}

// EnsureBulb ensures a bulb entry exists in the registry.
// If the bulb doesn't exist, creates a new entry with default values.
// Returns the bulb entry (existing or newly created).
func (r *Registry) EnsureBulb(id string) *Bulb {
	if r.Bulbs == nil {
		r.Bulbs = make(map[string]*Bulb)
	}

	if bulb, exists := r.Bulbs[id]; exists {
		return bulb
	}

	bulb := &Bulb{}
	r.Bulbs[id] = bulb
	return bulb
}

// UpdateBulbLastSeen updates the last seen timestamp, address, and model for
// a bulb, typically after a discovery scan.
func (r *Registry) UpdateBulbLastSeen(id, addr, model string) {
	bulb := r.EnsureBulb(id)
	bulb.LastSeen = time.Now()
	bulb.LastAddress = addr
	if model != "" {
		bulb.Model = model
	}
}

// SetBulbNickname sets a user-friendly nickname for a bulb.
func (r *Registry) SetBulbNickname(id, nickname string) {
	bulb := r.EnsureBulb(id)
	bulb.Nickname = nickname
}

// ResolveNickname finds the bulb whose nickname matches and returns its
// device identifier and metadata. Returns ("", nil) when no bulb matches.
func (r *Registry) ResolveNickname(nickname string) (string, *Bulb) {
	for id, bulb := range r.Bulbs {
		if bulb.Nickname == nickname {
			return id, bulb
		}
	}
	return "", nil
}
