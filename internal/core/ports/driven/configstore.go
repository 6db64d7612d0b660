package driven

// ConfigStore persists key-value configuration.
// Values must be JSON/TOML-serialisable.
type ConfigStore interface {
	// Get retrieves a value by key. The second return is false when absent.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" when absent or mistyped.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 when absent or mistyped.
	GetInt(key string) int

	// GetBool retrieves a boolean value, or false when absent or mistyped.
	GetBool(key string) bool

	// GetStringSlice retrieves a string slice value, or nil.
	GetStringSlice(key string) []string

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Save persists the current configuration.
	Save() error

	// Keys returns all configuration keys in sorted order.
	Keys() []string
}
