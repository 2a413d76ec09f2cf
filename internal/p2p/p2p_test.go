package p2p

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageValidateRejectsUnknownType(t *testing.T) {
	msg := Message{Type: "BOGUS"}
	require.Error(t, msg.Validate())
}

func TestMessageValidateAcceptsKnownTypes(t *testing.T) {
	for _, typ := range []MessageType{RequestChain, SendChain, NewBlock, NewTransaction, RequestPeers, SendPeers, Ping, Pong} {
		msg := Message{Type: typ}
		require.NoError(t, msg.Validate())
	}
}

func TestFrameRoundTrip(t *testing.T) {
	msg, err := NewMessage(Ping, map[string]string{"nonce": "abc"}, 123.5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, msg))

	got, err := readFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, msg.Type, got.Type)
	require.JSONEq(t, string(msg.Data), string(got.Data))
}

func TestPeerStringFormatsHostPort(t *testing.T) {
	p := Peer{Host: "127.0.0.1", Port: 4000}
	require.Equal(t, "127.0.0.1:4000", p.String())
}

func TestSeenCacheDedupsAndEvictsOldest(t *testing.T) {
	c := newSeenCache(2)
	require.False(t, c.seen("a"))
	require.True(t, c.seen("a"), "repeated key must be recognized as seen")

	require.False(t, c.seen("b"))
	require.False(t, c.seen("c"), "third distinct key evicts the oldest (a)")
	require.False(t, c.seen("a"), "evicted key is treated as new again")
}
