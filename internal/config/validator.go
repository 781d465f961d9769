package config

import "fmt"

// Validate collects every configuration problem instead of stopping at
// the first, matching the teacher's internal/config/validator.go shape.
func (c *Config) Validate() []error {
	var errs []error

	if c.Index.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("index.max_file_size must be positive, got %d", c.Index.MaxFileSize))
	}
	if c.Index.MaxFileCount <= 0 {
		errs = append(errs, fmt.Errorf("index.max_file_count must be positive, got %d", c.Index.MaxFileCount))
	}
	if c.Performance.ParseTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("performance.parse_timeout_ms must be positive, got %d", c.Performance.ParseTimeoutMs))
	}
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		errs = append(errs, fmt.Errorf("search.alpha must be in [0,1], got %f", c.Search.Alpha))
	}
	switch c.Search.DefaultMode {
	case "semantic", "keyword", "hybrid", "":
	default:
		errs = append(errs, fmt.Errorf("search.default_mode %q is not one of semantic|keyword|hybrid", c.Search.DefaultMode))
	}
	if c.Memory.SessionTTLHours <= 0 {
		errs = append(errs, fmt.Errorf("memory.session_ttl_hours must be positive, got %d", c.Memory.SessionTTLHours))
	}
	if c.Memory.StaleDays <= 0 {
		errs = append(errs, fmt.Errorf("memory.stale_days must be positive, got %d", c.Memory.StaleDays))
	}

	return errs
}
