// Package config loads stackresolve's TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/stackresolve/config.toml unless a path
// is given explicitly:
//
//	[resolve]
//	max_nodes = 5000
//	include_optional = false
//
//	[[repository]]
//	name = "central"
//	url = "https://repo1.maven.org/maven2"
//
//	[[repository]]
//	name = "local"
//	path = "/home/me/.m2/repository"
//
//	[cache]
//	backend = "redis"          # file, redis, mongo or none
//	redis_addr = "localhost:6379"
//	pom_ttl = "168h"
//
//	[output]
//	format = "tree"            # tree, json, dot, svg, pdf or png
//
// STACKRESOLVE_CACHE, STACKRESOLVE_REDIS_ADDR and STACKRESOLVE_MONGO_URI
// override the [cache] section.
package config
