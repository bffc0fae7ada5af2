package neo4j

import "fmt"

// InvalidVersionError reports a version literal that does not match
// MAJOR[.MINOR[.PATCH]] with purely numeric segments.
type InvalidVersionError struct {
	Version string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid Neo4j version %q: must be MAJOR[.MINOR[.PATCH]] with numeric segments only", e.Version)
}

// LicenseNotAcceptedError reports that the enterprise license side channel
// was missing or incomplete. It carries the file name and line content the
// caller must provide to accept the license.
type LicenseNotAcceptedError struct {
	FileName     string
	ExpectedLine string
}

func (e *LicenseNotAcceptedError) Error() string {
	return fmt.Sprintf(
		"Neo4j enterprise edition license not accepted: create a file named %q in the working directory containing the line %q",
		e.FileName, e.ExpectedLine,
	)
}
