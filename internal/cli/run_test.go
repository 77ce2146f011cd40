package cli_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/framesync/internal/cli"
	"github.com/aretw0/framesync/pkg/adapters/memory"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshots(t *testing.T, out string) []domain.Snapshot {
	t.Helper()
	var snaps []domain.Snapshot
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var s domain.Snapshot
		require.NoError(t, dec.Decode(&s))
		snaps = append(snaps, s)
	}
	return snaps
}

func TestExecute_JSON(t *testing.T) {
	var out bytes.Buffer
	err := cli.Execute(context.Background(), cli.RunOptions{
		URL:  "http://localhost/#!/foo",
		JSON: true,
		In:   strings.NewReader("click Go home\nquit\n"),
		Out:  &out,
	})
	require.NoError(t, err)

	snaps := snapshots(t, out.String())
	require.Len(t, snaps, 2)
	assert.Equal(t, "#!/foo", snaps[0].Hash)
	assert.Equal(t, "This is the foo route", snaps[0].View.Body)
	assert.Equal(t, "#!/", snaps[1].Hash)
	assert.Equal(t, domain.RootRoute, snaps[1].Route)
}

func TestExecute_ResumesSessionFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := cli.RunOptions{
		URL:       "http://localhost/",
		JSON:      true,
		SessionID: "cli-1",
		RedisURL:  "redis://" + mr.Addr(),
	}

	var first bytes.Buffer
	opts.In, opts.Out = strings.NewReader("click Go to foo\n"), &first
	require.NoError(t, cli.Execute(context.Background(), opts))

	var second bytes.Buffer
	opts.In, opts.Out = strings.NewReader("back\n"), &second
	require.NoError(t, cli.Execute(context.Background(), opts))

	snaps := snapshots(t, second.String())
	require.Len(t, snaps, 2)
	assert.Equal(t, "#!/foo", snaps[0].Hash, "resumed where the first run stopped")
	assert.Equal(t, []string{"", "#!/foo"}, snaps[0].Entries)
	assert.Equal(t, "", snaps[1].Hash)

	var fresh bytes.Buffer
	opts.Fresh = true
	opts.In, opts.Out = strings.NewReader(""), &fresh
	require.NoError(t, cli.Execute(context.Background(), opts))
	snaps = snapshots(t, fresh.String())
	require.Len(t, snaps, 1)
	assert.Equal(t, []string{""}, snaps[0].Entries)
}

func TestExecute_EncryptedSession(t *testing.T) {
	mr := miniredis.RunT(t)
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	opts := cli.RunOptions{
		URL:           "http://localhost/",
		JSON:          true,
		SessionID:     "sealed-1",
		RedisURL:      "redis://" + mr.Addr(),
		EncryptionKey: key,
	}

	var first bytes.Buffer
	opts.In, opts.Out = strings.NewReader("click Go to foo\n"), &first
	require.NoError(t, cli.Execute(context.Background(), opts))

	raw, err := mr.Get("framesync:session:sealed-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "#!/foo")
	assert.Contains(t, raw, `"sealed"`)

	var second bytes.Buffer
	opts.In, opts.Out = strings.NewReader(""), &second
	require.NoError(t, cli.Execute(context.Background(), opts))
	snaps := snapshots(t, second.String())
	require.Len(t, snaps, 1)
	assert.Equal(t, "#!/foo", snaps[0].Hash)
}

func TestSealStore(t *testing.T) {
	store := memory.NewStore()

	same, err := cli.SealStore(store, "", nil)
	require.NoError(t, err)
	assert.Same(t, store, same)

	_, err = cli.SealStore(store, "bm90LWEta2V5", nil)
	assert.Error(t, err)

	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32))
	_, err = cli.SealStore(store, key, []string{"short"})
	assert.Error(t, err)
}

func TestExecute_BadManifest(t *testing.T) {
	err := cli.Execute(context.Background(), cli.RunOptions{
		Manifest: "does-not-exist.yaml",
		In:       strings.NewReader(""),
		Out:      &bytes.Buffer{},
	})
	assert.ErrorContains(t, err, "error loading mini-app")
}
