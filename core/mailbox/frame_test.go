package mailbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame_RoundTrip(t *testing.T) {
	realm := NewRealm("frames")
	b, err := appendFrame(nil, realm, 9, 0, []byte("abc"))
	require.NoError(t, err)
	require.Len(t, b, headerSize+3)

	h, payload, rest, err := readFrame(b)
	require.NoError(t, err)
	require.Equal(t, realm, h.realm)
	require.Equal(t, ID(9), h.id)
	require.Zero(t, h.flags)
	require.Equal(t, "abc", string(payload))
	require.Empty(t, rest)
}

func TestFrame_Layout(t *testing.T) {
	b, err := appendFrame(nil, Realm(0x0102030405060708), 0x1112131415161718, flagZstd, []byte{0xAA, 0xBB})
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
		0x01,
		0x00, 0x00, 0x00, 0x02,
		0xAA, 0xBB,
	}, b)
}

func TestFrame_Concatenated(t *testing.T) {
	var (
		b   []byte
		err error
	)
	for i := 1; i <= 3; i++ {
		b, err = appendFrame(b, DefaultRealm, ID(i), 0, []byte{byte(i)})
		require.NoError(t, err)
	}

	for i := 1; i <= 3; i++ {
		var (
			h       header
			payload []byte
		)
		h, payload, b, err = readFrame(b)
		require.NoError(t, err)
		require.Equal(t, ID(i), h.id)
		require.Equal(t, []byte{byte(i)}, payload)
	}
	require.Empty(t, b)
}

func TestFrame_EmptyPayload(t *testing.T) {
	b, err := appendFrame(nil, DefaultRealm, 1, 0, nil)
	require.NoError(t, err)

	_, payload, rest, err := readFrame(b)
	require.NoError(t, err)
	require.Empty(t, payload)
	require.Empty(t, rest)
}

func TestFrame_Malformed(t *testing.T) {
	good, err := appendFrame(nil, DefaultRealm, 1, 0, []byte("hello"))
	require.NoError(t, err)

	t.Run("short header", func(t *testing.T) {
		_, _, _, err := readFrame(good[:headerSize-1])
		require.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("truncated payload", func(t *testing.T) {
		_, _, _, err := readFrame(good[:len(good)-1])
		require.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("unknown flags", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[16] = 0x80
		_, _, _, err := readFrame(bad)
		require.ErrorIs(t, err, ErrMalformedFrame)
	})
}
