package backend

import (
	"archive/tar"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/ctrtrace/tracecore/internal/logging"
	"github.com/ctrtrace/tracecore/internal/model"
)

// Archive writes the side-band archive of spec.md §1: a tar stream,
// zstd-compressed, of every regular file currently on disk according to
// the store, read from the host filesystem at dump time. A file that has
// since disappeared is skipped and warned about rather than failing the
// whole dump (SPEC_FULL.md §4.11 "best-effort").
func Archive(store *model.Store, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	for _, rec := range store.Files() {
		if rec.Kind != model.KindRegularFile || rec.IsCurrentlyOnDisk != model.True {
			continue
		}
		if err := writeArchiveEntry(tw, rec.RealPath); err != nil {
			logging.Errorf(rec, "archive: skipping, read failed: %v", err)
		}
	}
	return nil
}

func writeArchiveEntry(tw *tar.Writer, realpath string) error {
	f, err := os.Open(realpath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = realpath
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
