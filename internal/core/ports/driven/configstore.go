package driven

// ConfigStore provides read access to the defaults file.
// Keys use dot notation matching the file's tables, e.g. "backup.type".
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString returns "" if the key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt returns 0 if the key doesn't exist or isn't an integer.
	GetInt(key string) int

	// GetBool returns false if the key doesn't exist or isn't a boolean.
	GetBool(key string) bool

	// GetStringSlice returns nil if the key doesn't exist or isn't a slice.
	GetStringSlice(key string) []string

	// Path returns the configuration file path.
	Path() string
}
