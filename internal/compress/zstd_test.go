package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("mailbox payload "), 512)

	c, err := Compress(nil, src)
	require.NoError(t, err)
	require.Less(t, len(c), len(src))

	out, err := Decompress(nil, c)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestDecompress_Garbage(t *testing.T) {
	_, err := Decompress(nil, []byte("definitely not zstd"))
	require.Error(t, err)
}
