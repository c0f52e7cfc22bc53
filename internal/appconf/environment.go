package appconf

import "strings"

// Environment is the operating environment the server runs in.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

// EnvFlagToEnvironment maps a flag or env var value to an Environment.
// Anything unrecognized is treated as development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "test", "testing":
		return Test
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

func (e Environment) IsProduction() bool { return e == Production }
