package rcon

import (
	"bytes"
	"time"
)

// Response timeouts for the request families the server answers slowly.
const (
	DefaultTimeout   = 2 * time.Second
	ListingTimeout   = 5 * time.Second
	MapChangeTimeout = 120 * time.Second
)

// CompletionPolicy reports whether the bytes accumulated so far form a
// whole response. The protocol carries no length or terminator, so each
// request kind picks a heuristic.
type CompletionPolicy func(accumulated []byte) bool

// EndsWithNewline is the default policy: single-packet replies end in '\n'.
func EndsWithNewline(accumulated []byte) bool {
	return len(accumulated) > 0 && accumulated[len(accumulated)-1] == '\n'
}

// Contains completes once token appears anywhere in the response.
func Contains(token string) CompletionPolicy {
	t := []byte(token)
	return func(accumulated []byte) bool {
		return bytes.Contains(accumulated, t)
	}
}

// EndsWith completes once the response ends with token.
func EndsWith(token string) CompletionPolicy {
	t := []byte(token)
	return func(accumulated []byte) bool {
		return bytes.HasSuffix(accumulated, t)
	}
}

// Any completes when any of policies does.
func Any(policies ...CompletionPolicy) CompletionPolicy {
	return func(accumulated []byte) bool {
		for _, p := range policies {
			if p(accumulated) {
				return true
			}
		}
		return false
	}
}

// All completes when every one of policies does.
func All(policies ...CompletionPolicy) CompletionPolicy {
	return func(accumulated []byte) bool {
		for _, p := range policies {
			if !p(accumulated) {
				return false
			}
		}
		return true
	}
}

// AnyReply completes on the first reply datagram, even an empty one. Used
// for commands whose reply is only the "print" header.
func AnyReply(_ []byte) bool {
	return true
}
