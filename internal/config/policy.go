package config

// Policy is the request-scoped snapshot of all global knobs the pipeline needs.
// It is assembled once per send at the orchestrator boundary and passed down
// explicitly, so no component reads mutable process-wide state mid-flight.
type Policy struct {
	FileHandlingEnabled bool

	// retrievalProviders gates retrieval-augmented delivery per provider id.
	retrievalProviders map[string]bool

	MaxInlineImageBytes int64
	MaxImageItemBytes   int64
	MaxImagesPerMessage int
	MaxPDFPages         int
	MaxImageDimension   int
	JPEGQuality         int
}

// PolicyFor snapshots the current configuration into a Policy value.
func (c *Config) PolicyFor() Policy {
	allowed := make(map[string]bool, len(c.Ai.RetrievalProviders))
	for _, id := range c.Ai.RetrievalProviders {
		allowed[id] = true
	}
	return Policy{
		FileHandlingEnabled: c.Ai.FileHandlingEnabled,
		retrievalProviders:  allowed,
		MaxInlineImageBytes: c.Limits.MaxInlineImageBytes,
		MaxImageItemBytes:   c.Limits.MaxImageItemBytes,
		MaxImagesPerMessage: c.Limits.MaxImagesPerMessage,
		MaxPDFPages:         c.Limits.MaxPDFPages,
		MaxImageDimension:   c.Limits.MaxImageDimension,
		JPEGQuality:         c.Limits.JPEGQuality,
	}
}

// RetrievalAllowed reports whether global policy permits retrieval-augmented
// delivery for the given provider.
func (p Policy) RetrievalAllowed(providerId string) bool {
	return p.retrievalProviders[providerId]
}

// TestPolicy builds a Policy directly, for tests and tooling.
func TestPolicy(fileHandling bool, retrievalProviders []string, limits LimitsConfig) Policy {
	cfg := &Config{
		Ai: AIConfig{
			FileHandlingEnabled: fileHandling,
			RetrievalProviders:  retrievalProviders,
		},
		Limits: limits,
	}
	return cfg.PolicyFor()
}
