package subscription

import "strings"

// Match reports whether topic matches pattern.
//
// Patterns use NATS subject syntax: tokens are separated by ".", "*" matches exactly
// one token and a trailing ">" matches one or more tokens. A bare ">" matches every
// topic, including the empty one.
func Match(pattern, topic string) bool {
	if pattern == ">" {
		return true
	}
	if !strings.ContainsAny(pattern, "*>") {
		return pattern == topic
	}

	pt := strings.Split(pattern, ".")
	tt := strings.Split(topic, ".")
	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(tt) > i
		}
		if i >= len(tt) {
			return false
		}
		if p != "*" && p != tt[i] {
			return false
		}
	}

	return len(pt) == len(tt)
}

// ValidPattern reports whether pattern is well formed: no empty tokens, wildcards
// only as whole tokens, and ">" only as the last token.
func ValidPattern(pattern string) bool {
	if pattern == "" {
		return false
	}

	tokens := strings.Split(pattern, ".")
	for i, tok := range tokens {
		switch {
		case tok == "":
			return false
		case tok == ">":
			if i != len(tokens)-1 {
				return false
			}
		case tok == "*":
		case strings.ContainsAny(tok, "*>"):
			return false
		}
	}

	return true
}
