package cluster

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerID(t *testing.T) {
	require.True(t, NilPeer.IsNil())

	p := NewPeerID()
	require.False(t, p.IsNil())
	require.NotEqual(t, p, NewPeerID())

	parsed, err := ParsePeerID(p.String())
	require.NoError(t, err)
	require.Equal(t, p, parsed)

	_, err = ParsePeerID("nope")
	require.Error(t, err)
	require.Panics(t, func() { MustParsePeerID("nope") })
}

func TestPeerID_Encoding(t *testing.T) {
	p := NewPeerID()

	b, err := p.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 16)
	var fromBin PeerID
	require.NoError(t, fromBin.UnmarshalBinary(b))
	require.Equal(t, p, fromBin)
	require.Error(t, fromBin.UnmarshalBinary(b[:3]))

	j, err := json.Marshal(map[string]PeerID{"peer": p})
	require.NoError(t, err)
	require.JSONEq(t, `{"peer":"`+p.String()+`"}`, string(j))

	var out map[string]PeerID
	require.NoError(t, json.Unmarshal(j, &out))
	require.Equal(t, p, out["peer"])
}
