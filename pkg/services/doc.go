// Package services defines the closed set of downstream service types and the
// directory that binds each of them to a base address.
//
// The directory is validated once at startup. Every service type must be
// bound, so a lookup for a known type never fails at request time:
//
//	dir, err := services.NewDirectory(map[services.Type]string{
//	    services.Auth:    "http://auth:8081",
//	    services.User:    "http://user:8082",
//	    // ...
//	})
//	if err != nil {
//	    // configuration error, fatal at startup
//	}
//	base, _ := dir.Resolve(services.Content)
package services
