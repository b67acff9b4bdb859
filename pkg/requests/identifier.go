// Package requests correlates inbound and outbound requests across
// invocations so a downstream function can recover the tracing context of
// the call that triggered it.
package requests

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spcl/faas-profiler-go/pkg/config"
)

// RecordType distinguishes the two directions a request row can describe.
type RecordType string

const (
	RecordInbound  RecordType = "INBOUND"
	RecordOutbound RecordType = "OUTBOUND"
)

// IdentifierString flattens an identifier map into the sortable key format
// `TYPE##k#v##k#v`, keys ascending. Keys and values must not contain the
// delimiter, otherwise the key could not be split back apart.
func IdentifierString(recordType RecordType, identifier map[string]string) (string, error) {
	if len(identifier) == 0 {
		return "", fmt.Errorf("requests: cannot make identifier string without identifiers")
	}

	keys := make([]string, 0, len(identifier))
	for k := range identifier {
		if strings.Contains(k, config.KeyValueDelimiter) {
			return "", fmt.Errorf("requests: identifier key %q contains %q", k, config.KeyValueDelimiter)
		}
		if strings.Contains(identifier[k], config.KeyValueDelimiter) {
			return "", fmt.Errorf("requests: identifier value %q contains %q", identifier[k], config.KeyValueDelimiter)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, string(recordType))
	for _, k := range keys {
		parts = append(parts, k+config.KeyValueDelimiter+identifier[k])
	}
	return strings.Join(parts, config.IdentifierDelimiter), nil
}

// ParseIdentifierString splits an identifier string back into its record
// type and identifier map.
func ParseIdentifierString(s string) (RecordType, map[string]string, error) {
	parts := strings.Split(s, config.IdentifierDelimiter)
	if len(parts) < 2 {
		return "", nil, fmt.Errorf("requests: identifier string %q is malformed", s)
	}
	recordType := RecordType(parts[0])
	if recordType != RecordInbound && recordType != RecordOutbound {
		return "", nil, fmt.Errorf("requests: identifier string %q has unknown record type", s)
	}

	identifier := make(map[string]string, len(parts)-1)
	for _, part := range parts[1:] {
		kv := strings.SplitN(part, config.KeyValueDelimiter, 2)
		if len(kv) != 2 {
			return "", nil, fmt.Errorf("requests: identifier string %q is malformed", s)
		}
		identifier[kv[0]] = kv[1]
	}
	return recordType, identifier, nil
}
