package netcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointTextRoundTrip(t *testing.T) {
	// Scenario S6.
	cases := []struct {
		text      string
		transport Transport
	}{
		{"127.0.0.1:12345", TCP},
		{"[::1]:12345", TCP},
		{"[::1%2]:12345", TCP},
		{"/tmp/server", LocalStream},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			ep, err := ParseEndpoint(tc.text, tc.transport)
			require.NoError(t, err)
			assert.Equal(t, tc.text, ep.Text())

			reparsed, err := ParseEndpoint(ep.Text(), tc.transport)
			require.NoError(t, err)
			assert.Equal(t, ep, reparsed)
		})
	}
}

func TestEndpointBinaryRoundTrip(t *testing.T) {
	eps := []Endpoint{
		mustParse(t, "127.0.0.1:80", TCP),
		mustParse(t, "[fe80::1%eth0]:443", UDP),
		{Family: FamilyLocal, Transport: LocalDatagram, Path: "/tmp/x.sock"},
	}

	for _, ep := range eps {
		data, err := ep.MarshalBinary()
		require.NoError(t, err)

		var decoded Endpoint
		require.NoError(t, decoded.UnmarshalBinary(data))
		assert.Equal(t, ep, decoded)
	}
}

func TestEndpointJSONRoundTrip(t *testing.T) {
	ep := mustParse(t, "10.0.0.5:9000", TCP)

	data, err := ep.MarshalJSON()
	require.NoError(t, err)

	var decoded Endpoint
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, ep, decoded)
}

func TestLocalEndpointLengthLimit(t *testing.T) {
	longPath := make([]byte, 109)
	for i := range longPath {
		longPath[i] = 'a'
	}
	_, err := NewLocalEndpoint(string(longPath), LocalStream)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeLimit))
}

func mustParse(t *testing.T, text string, transport Transport) Endpoint {
	t.Helper()
	ep, err := ParseEndpoint(text, transport)
	require.NoError(t, err)
	return ep
}
