package schema

import "fmt"

// ValidationConfig bounds what the loader accepts from an untrusted schema file.
type ValidationConfig struct {
	Enabled          bool `json:"enabled"`
	MaxDepth         int  `json:"maxDepth"`
	MaxTypes         int  `json:"maxTypes"`
	MaxFieldsPerType int  `json:"maxFieldsPerType"`
	CacheValidation  bool `json:"cacheValidation"`
}

// DefaultValidationConfig returns the default limits.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		Enabled:          true,
		MaxDepth:         50,
		MaxTypes:         10000,
		MaxFieldsPerType: 1000,
		CacheValidation:  true,
	}
}

// ConfigPatch is a partial update. Nil fields keep their current value.
type ConfigPatch struct {
	Enabled          *bool
	MaxDepth         *int
	MaxTypes         *int
	MaxFieldsPerType *int
	CacheValidation  *bool
}

// Apply merges p into c and returns the result.
func (p ConfigPatch) Apply(c ValidationConfig) ValidationConfig {
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.MaxDepth != nil {
		c.MaxDepth = *p.MaxDepth
	}
	if p.MaxTypes != nil {
		c.MaxTypes = *p.MaxTypes
	}
	if p.MaxFieldsPerType != nil {
		c.MaxFieldsPerType = *p.MaxFieldsPerType
	}
	if p.CacheValidation != nil {
		c.CacheValidation = *p.CacheValidation
	}
	return c
}

// limitsKey identifies the limits that influence a validation verdict.
// Enabled and CacheValidation do not take part.
func (c ValidationConfig) limitsKey() string {
	return fmt.Sprintf("maxDepth=%d;maxTypes=%d;maxFieldsPerType=%d", c.MaxDepth, c.MaxTypes, c.MaxFieldsPerType)
}
