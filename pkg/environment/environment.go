package environment

import "strings"

// Environment is the deployment environment of the process.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse normalizes an environment name, accepting the short aliases
// "stage" and "prod". Unknown values map to Development.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

func (e Environment) String() string { return string(e) }

func (e Environment) IsProduction() bool { return e == Production }

func (e Environment) IsDevelopment() bool { return e == Development }

// Deployed reports whether e serves real users. Deployed environments must
// not fall back to in-memory stores or to the logging push client.
func (e Environment) Deployed() bool { return e == Staging || e == Production }
