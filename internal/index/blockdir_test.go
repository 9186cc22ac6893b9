package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockDirectoryRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewBlockInfoWriter(&buf)
	metas := []BlockMeta{
		{LastDocID: 10, Bytes: 256},
		{LastDocID: 300, Bytes: 270},
		{LastDocID: 301, Bytes: 33},
	}
	for _, m := range metas {
		require.NoError(t, w.Append(m))
	}
	require.NoError(t, w.Flush())
	require.Equal(t, 12*len(metas), buf.Len())

	d, err := ReadBlockDirectory(&buf)
	require.NoError(t, err)
	d.SetTotalPostings(2*PostingsPerBlock + 17)

	require.Equal(t, 3, d.Blocks())
	require.Equal(t, int64(0), d.Start(0))
	require.Equal(t, int64(256), d.Start(1))
	require.Equal(t, int64(526), d.Start(2))
	require.Equal(t, uint32(300), d.LastDocID(1))
	require.Equal(t, PostingsPerBlock, d.PostingsIn(0))
	require.Equal(t, PostingsPerBlock, d.PostingsIn(1))
	require.Equal(t, 17, d.PostingsIn(2))

	require.Equal(t, 0, d.Locate(0))
	require.Equal(t, 0, d.Locate(255))
	require.Equal(t, 1, d.Locate(256))
	require.Equal(t, 2, d.Locate(558))
	require.Equal(t, -1, d.Locate(559))
}

func TestBlockDirectoryFullLastBlock(t *testing.T) {
	var buf bytes.Buffer
	w := NewBlockInfoWriter(&buf)
	require.NoError(t, w.Append(BlockMeta{LastDocID: 127, Bytes: 256}))
	require.NoError(t, w.Flush())

	d, err := ReadBlockDirectory(&buf)
	require.NoError(t, err)
	d.SetTotalPostings(PostingsPerBlock)
	require.Equal(t, PostingsPerBlock, d.PostingsIn(0))
}
