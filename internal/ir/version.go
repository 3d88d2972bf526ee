package ir

// Version constants for descriptor schema and generator.
const (
	// IRVersion is the descriptor schema version.
	IRVersion = "1"

	// GeneratorVersion is the lwir generator version.
	GeneratorVersion = "0.1.0"
)
