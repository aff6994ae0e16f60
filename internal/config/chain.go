package config

// Lookup produces a candidate value for a setting and reports whether the
// layer it represents actually had one.
type Lookup func() (string, bool)

// First evaluates lookups in order and returns the first non-empty value.
// This is the one resolution rule shared by every layered setting (base
// branch, subject prefix, remote, ...): command line beats branch config
// beats profile beats default.
func First(lookups ...Lookup) (string, bool) {
	for _, l := range lookups {
		if v, ok := l(); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Static adapts a plain value to a Lookup; empty means "not set".
func Static(v string) Lookup {
	return func() (string, bool) { return v, v != "" }
}
