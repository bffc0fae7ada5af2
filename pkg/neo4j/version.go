package neo4j

import "regexp"

// versionPattern accepts MAJOR[.MINOR[.PATCH]] with purely numeric segments.
// This is stricter than semantic versioning on purpose: the -enterprise
// suffix is appended by this package itself and must never collide with
// user-supplied pre-release or build-metadata text.
var versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+){0,2}$`)

func validateVersion(version string) error {
	if !versionPattern.MatchString(version) {
		return &InvalidVersionError{Version: version}
	}
	return nil
}
