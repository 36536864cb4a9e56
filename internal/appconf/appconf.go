// Package appconf holds process-level configuration shared by the HTTP server,
// the feed manager and the router.
package appconf

import "strings"

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// Config holds the settings of the HTTP server.
type Config struct {
	Port          int
	Env           Environment
	ApiKeys       []string
	Verbose       bool
	RateLimit     int // requests per second per API key
	ExemptApiKeys []string
}

// EnvFlagToEnvironment maps a command-line or config value to an Environment.
// Unknown values fall back to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}
