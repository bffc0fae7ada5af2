// Package neo4j configures and materializes ephemeral Neo4j instances for
// automated tests: a value-semantics configuration builder, a deterministic
// derivation of the container environment and image tag, and an immutable
// runtime handle that answers endpoint queries once the container engine has
// reported its state.
package neo4j

import (
	"fmt"
	"os"
	"strings"
)

const (
	imageName = "neo4j"

	defaultVersion  = "5"
	defaultUser     = "neo4j"
	defaultPassword = "neo"

	// Environment variables honored by FromEnv. Test suites rely on these
	// for CI overrides; they must stay stable.
	versionEnvVar  = "NEO4J_VERSION_TAG"
	userEnvVar     = "NEO4J_TEST_USER"
	passwordEnvVar = "NEO4J_TEST_PASS"

	licenseFileName  = "container-license-acceptance.txt"
	enterpriseSuffix = "-enterprise"
)

// Config accumulates the desired shape of a Neo4j test container. It is a
// value type: every mutator returns a new Config and leaves its receiver
// untouched, so a single Config can safely seed several derived ones.
//
// Config values are consumed by Build, which resolves all deferred fields
// and produces an immutable *Image.
type Config struct {
	version    deferredValue
	user       deferredValue
	password   deferredValue
	enterprise bool
	plugins    []Plugin
}

// Default returns a configuration with the built-in defaults: Neo4j 5,
// user "neo4j", password "neo".
func Default() Config {
	return Config{
		version:  defaultValue(defaultVersion),
		user:     defaultValue(defaultUser),
		password: defaultValue(defaultPassword),
	}
}

// FromEnv returns a configuration whose version, user and password fall back
// to the NEO4J_VERSION_TAG, NEO4J_TEST_USER and NEO4J_TEST_PASS environment
// variables, keeping the built-in defaults when those are not set. The
// variables are read at Build time, not here.
func FromEnv() Config {
	return Config{
		version:  envValue(versionEnvVar, defaultVersion),
		user:     envValue(userEnvVar, defaultUser),
		password: envValue(passwordEnvVar, defaultPassword),
	}
}

// WithVersion overrides the image version. The version must match
// MAJOR[.MINOR[.PATCH]] with numeric segments only; on failure the receiver
// is returned unchanged alongside an *InvalidVersionError.
func (c Config) WithVersion(version string) (Config, error) {
	if err := validateVersion(version); err != nil {
		return c, err
	}
	c.version = explicitValue(version)
	return c, nil
}

// WithUser overrides the database user, re-enabling authentication for this
// field after a WithoutAuthentication call.
func (c Config) WithUser(user string) Config {
	c.user = explicitValue(user)
	return c
}

// WithPassword overrides the database password, re-enabling authentication
// for this field after a WithoutAuthentication call.
func (c Config) WithPassword(password string) Config {
	c.password = explicitValue(password)
	return c
}

// WithoutAuthentication disables authentication entirely, discarding any
// previously configured user and password.
func (c Config) WithoutAuthentication() Config {
	c.user = unsetValue()
	c.password = unsetValue()
	return c
}

// WithPlugins adds plugins to the set enabled in the container. Duplicates
// across calls are collapsed at build time.
func (c Config) WithPlugins(plugins ...Plugin) Config {
	// Copy-on-write: never extend a slice another Config may share.
	merged := make([]Plugin, 0, len(c.plugins)+len(plugins))
	merged = append(merged, c.plugins...)
	merged = append(merged, plugins...)
	c.plugins = merged
	return c
}

// WithEnterpriseEdition switches to the commercially licensed enterprise
// image. The license must be accepted out of band: a file named
// container-license-acceptance.txt in the working directory must contain,
// on some line, the exact image reference being accepted (for example
// "neo4j:5-enterprise"). Returns an *LicenseNotAcceptedError otherwise,
// leaving the receiver unchanged.
//
// The gate is re-checked at Build time against the finally resolved version,
// since the version may still change after this call.
func (c Config) WithEnterpriseEdition() (Config, error) {
	version, _ := c.version.resolve()
	if err := checkLicenseAcceptance(version); err != nil {
		return c, err
	}
	c.enterprise = true
	return c, nil
}

// checkLicenseAcceptance verifies the license side channel for the given
// version: one line of the acceptance file, whitespace-trimmed, must equal
// the enterprise image reference.
func checkLicenseAcceptance(version string) error {
	expected := fmt.Sprintf("%s:%s%s", imageName, version, enterpriseSuffix)
	notAccepted := &LicenseNotAcceptedError{FileName: licenseFileName, ExpectedLine: expected}

	data, err := os.ReadFile(licenseFileName)
	if err != nil {
		return notAccepted
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == expected {
			return nil
		}
	}
	return notAccepted
}
