package neo4j

import "os"

type deferredKind int

const (
	deferredExplicit deferredKind = iota
	deferredDefault
	deferredEnv
	deferredUnset
)

// deferredValue is a configuration field whose concrete value is picked at
// build time from one of several sources: an explicit value, a default
// literal, a process environment variable with a fallback, or nothing at all.
type deferredValue struct {
	kind    deferredKind
	literal string
	envName string
}

func explicitValue(s string) deferredValue {
	return deferredValue{kind: deferredExplicit, literal: s}
}

func defaultValue(s string) deferredValue {
	return deferredValue{kind: deferredDefault, literal: s}
}

func envValue(name, fallback string) deferredValue {
	return deferredValue{kind: deferredEnv, envName: name, literal: fallback}
}

func unsetValue() deferredValue {
	return deferredValue{kind: deferredUnset}
}

// resolve returns the concrete value and whether one is present. Only the
// unset kind resolves to absent; the environment kind falls back to its
// literal when the variable is not set.
func (d deferredValue) resolve() (string, bool) {
	switch d.kind {
	case deferredUnset:
		return "", false
	case deferredEnv:
		if v, ok := os.LookupEnv(d.envName); ok {
			return v, true
		}
		return d.literal, true
	default:
		return d.literal, true
	}
}
