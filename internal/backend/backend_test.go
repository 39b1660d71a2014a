package backend

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrtrace/tracecore/internal/model"
)

func TestDockerfileGroupsAndSortsEntries(t *testing.T) {
	store := model.NewStore()
	store.GetOrCreate("/usr/bin/sh", model.InitialAttrs{OnDisk: model.True, Kind: model.KindRegularFile})
	store.GetOrCreate("/etc/passwd", model.InitialAttrs{OnDisk: model.True, Kind: model.KindRegularFile})
	dir := store.GetOrCreate("/var/lib/app", model.InitialAttrs{OnDisk: model.True, Kind: model.KindDirectory})
	dir.SetRequiresAllChildren()

	out, err := Dockerfile(store, Options{BaseImage: "debian:bookworm-slim"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "FROM debian:bookworm-slim\n"))
	assert.Contains(t, out, "RUN mkdir -p /var/lib/app\n")
	assert.Contains(t, out, "COPY etc/passwd /etc/passwd\n")
	assert.Contains(t, out, "COPY usr/bin/sh /usr/bin/sh\n")
	assert.True(t, strings.Index(out, "/etc/passwd") < strings.Index(out, "/usr/bin/sh"))
}

func TestDockerfileDefaultsBaseImageToScratch(t *testing.T) {
	out, err := Dockerfile(model.NewStore(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "FROM scratch\n", out)
}

func TestDockerfileSkipsRecordsNotCurrentlyOnDisk(t *testing.T) {
	store := model.NewStore()
	rec := store.GetOrCreate("/tmp/gone", model.InitialAttrs{OnDisk: model.True, Kind: model.KindRegularFile})
	rec.MarkDeleted()

	out, err := Dockerfile(store, Options{})
	require.NoError(t, err)
	assert.NotContains(t, out, "gone")
}

func TestCSVRendersHeaderAndEmbeddedAccesses(t *testing.T) {
	store := model.NewStore()
	rec := store.GetOrCreate("/app/config.yaml", model.InitialAttrs{OnDisk: model.True, Kind: model.KindRegularFile})
	rec.RegisterAccess(model.AccessRecord{
		Pid: 42, RelPath: "config.yaml", Workdir: "/app",
		OpenFlags: 0, HasFlags: true, Executable: false,
	})

	var buf bytes.Buffer
	require.NoError(t, CSV(store, &buf))

	out := buf.String()
	assert.Contains(t, out, "RealPath,WasEverCreated,WasEverDeleted,IsCurrentlyOnTheDisk,WasInitiallyOnTheDisk,FileType,AccessedAs")
	assert.Contains(t, out, "/app/config.yaml")
	assert.Contains(t, out, "config.yaml,/app,false,0")
}

func TestCSVEmitsEmptyOptionalsForUnflaggedAccess(t *testing.T) {
	store := model.NewStore()
	rec := store.GetOrCreate("/app/data.bin", model.InitialAttrs{OnDisk: model.True, Kind: model.KindRegularFile})
	rec.RegisterAccess(model.AccessRecord{Pid: 1, RelPath: "data.bin", Workdir: "/app", HasFlags: false})

	var buf bytes.Buffer
	require.NoError(t, CSV(store, &buf))
	assert.Contains(t, buf.String(), "data.bin,/app,false,")
}
