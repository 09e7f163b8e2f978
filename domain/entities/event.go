package entities

import "strings"

// EventScope controls which sources may deliver an event to a subscription.
// Local subscriptions never see network-originated events.
type EventScope uint8

const (
	ScopeLocal EventScope = iota
	ScopeNetwork
)

func (s EventScope) String() string {
	if s == ScopeNetwork {
		return "network"
	}
	return "local"
}

// Source markers prefixed by the host to an event's source string.
const (
	// NetSourcePrefix marks an event that arrived from a network peer.
	NetSourcePrefix = "net:"
	// InternalNetSourcePrefix marks a relayed network event; it is accepted by
	// every scope.
	InternalNetSourcePrefix = "internal-net:"
)

// RawEvent is an undecoded event as delivered to a subscription.
type RawEvent struct {
	Source  string
	Payload []byte
}

// ResolveSource applies scope filtering to a raw source string. It returns the
// logical sender and whether a subscription with the given scope accepts it.
// A source without a marker is local and its identity is discarded.
func ResolveSource(source string, scope EventScope) (string, bool) {
	switch {
	case strings.HasPrefix(source, NetSourcePrefix):
		if scope != ScopeNetwork {
			return "", false
		}
		return strings.TrimPrefix(source, NetSourcePrefix), true
	case strings.HasPrefix(source, InternalNetSourcePrefix):
		return strings.TrimPrefix(source, InternalNetSourcePrefix), true
	default:
		if scope != ScopeLocal {
			return "", false
		}
		return "", true
	}
}
