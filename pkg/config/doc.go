// Package config loads gateway configuration.
//
// Settings come from the environment, optionally seeded from a .env file
// ([github.com/joho/godotenv]) and decoded with [github.com/joeshaw/envdecode].
// The route topology (groups, service routes, public paths, rate-limit
// families and service address overrides) comes from an optional YAML file
// named by GATEWAY_CONFIG_FILE:
//
//	groups:
//	  - name: api
//	    prefix: /api
//	  - name: content
//	    prefix: /content
//	    parent: api
//	routes:
//	  - service: content
//	    prefix: /api/content
//	rate_limit_families:
//	  - prefix: /api/auth
//	    limit: 20
//	public_paths:
//	  - path: /health
//	    prefix: true
//
// Any validation failure is a configuration error and should stop the
// process at startup.
package config
