package neo4j

import (
	"fmt"
	"strconv"
	"strings"
)

// Container environment keys written by Build. Each derivation step owns a
// distinct key, so merging the steps cannot overwrite anything.
const (
	authEnvKey          = "NEO4J_AUTH"
	pluginsEnvKey       = "NEO4JLABS_PLUGINS"
	minPasswordEnvKey   = "NEO4J_dbms_security_auth__minimum__password__length"
	acceptLicenseEnvKey = "NEO4J_ACCEPT_LICENSE_AGREEMENT"

	// noAuthToken disables authentication in the container.
	noAuthToken = "none"

	// minPasswordLength is Neo4j's default password policy floor. Shorter
	// passwords only work when the floor is lowered to match; without the
	// override the container fails to start.
	minPasswordLength = 8
)

// Build finalizes the configuration into an immutable runtime image. It
// resolves all deferred values, validates the resolved version (the only
// place an environment-sourced version is seen), re-checks the enterprise
// license gate against that version, and derives the container environment.
//
// The derived environment is a pure function of the configuration: identical
// configurations produce byte-identical entries.
func (c Config) Build() (*Image, error) {
	version, _ := c.version.resolve()
	if err := validateVersion(version); err != nil {
		return nil, err
	}
	if c.enterprise {
		if err := checkLicenseAcceptance(version); err != nil {
			return nil, err
		}
	}

	env := make(map[string]string)

	user, userSet := c.user.resolve()
	password, passwordSet := c.password.resolve()
	authEnabled := userSet && passwordSet
	if authEnabled {
		env[authEnvKey] = fmt.Sprintf("%s/%s", user, password)
		if n := len(password); n < minPasswordLength {
			env[minPasswordEnvKey] = strconv.Itoa(n)
		}
	} else {
		env[authEnvKey] = noAuthToken
	}

	if names := pluginNames(c.plugins); len(names) > 0 {
		env[pluginsEnvKey] = serializePluginNames(names)
	}

	if c.enterprise {
		version += enterpriseSuffix
		env[acceptLicenseEnvKey] = "yes"
	}

	return &Image{
		version:     version,
		user:        user,
		password:    password,
		authEnabled: authEnabled,
		env:         env,
	}, nil
}

// serializePluginNames renders the sorted plugin names the way the Neo4j
// entrypoint expects them, e.g. ["apoc","bloom"].
func serializePluginNames(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = strconv.Quote(name)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
