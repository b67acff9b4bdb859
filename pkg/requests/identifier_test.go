package requests

import (
	"testing"

	r "github.com/stretchr/testify/require"
)

func TestIdentifierString_SortsKeys(t *testing.T) {
	s, err := IdentifierString(RecordOutbound, map[string]string{
		"object_key":  "a.png",
		"bucket_name": "in",
	})
	r.NoError(t, err)
	r.Equal(t, "OUTBOUND##bucket_name#in##object_key#a.png", s)
}

func TestIdentifierString_Round(t *testing.T) {
	identifier := map[string]string{
		"table_name": "t_Users",
		"region":     "eu-central-1",
		"key":        "42",
	}
	s, err := IdentifierString(RecordInbound, identifier)
	r.NoError(t, err)

	recordType, parsed, err := ParseIdentifierString(s)
	r.NoError(t, err)
	r.Equal(t, RecordInbound, recordType)
	r.Equal(t, identifier, parsed)
}

func TestIdentifierString_Rejects(t *testing.T) {
	_, err := IdentifierString(RecordInbound, nil)
	r.Error(t, err)

	_, err = IdentifierString(RecordInbound, map[string]string{"bad#key": "v"})
	r.Error(t, err)

	_, err = IdentifierString(RecordInbound, map[string]string{"k": "bad#value"})
	r.Error(t, err)
}

func TestParseIdentifierString_Rejects(t *testing.T) {
	_, _, err := ParseIdentifierString("INBOUND")
	r.Error(t, err)

	_, _, err = ParseIdentifierString("SIDEWAYS##k#v")
	r.Error(t, err)

	_, _, err = ParseIdentifierString("INBOUND##novalue")
	r.Error(t, err)
}
