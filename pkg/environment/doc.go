// Package environment names the deployment environment of the hub.
//
// The environment picks the logger defaults (text at debug level in
// development, JSON at info elsewhere) and, through Deployed, decides whether
// hubd may start without PostgreSQL or a push gateway:
//
//	env := environment.Parse(os.Getenv("APP_ENV"))
//	if env.Deployed() && cfg.Push.Endpoint == "" {
//	    return errors.New("PUSH_SERVICE_URL is required")
//	}
package environment
