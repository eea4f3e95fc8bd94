// Package config loads hub configuration from environment variables and
// YAML files.
//
// Environment-backed structs are parsed with github.com/caarlos0/env/v11
// after an optional .env file is read with github.com/joho/godotenv. Every
// configuration type is parsed once and cached for the life of the process;
// Reset clears the cache in tests.
//
//	var cfg push.Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Structured documents such as rate-limit rule tables are read with LoadFile,
// which decodes YAML via gopkg.in/yaml.v3 after expanding ${VAR} references.
//
//	var rules ratelimit.RuleFile
//	err := config.LoadFile("ratelimits.yaml", &rules)
//
// All failures wrap one of the package sentinel errors so callers can match
// them with errors.Is.
package config
