package backend

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/ctrtrace/tracecore/internal/model"
)

var csvHeader = []string{
	"RealPath", "WasEverCreated", "WasEverDeleted", "IsCurrentlyOnTheDisk",
	"WasInitiallyOnTheDisk", "FileType", "AccessedAs",
}

// CSV renders the documented (not bit-exact) persisted CSV of spec.md §6:
// one row per FileRecord plus every unbacked record, with AccessedAs itself
// an embedded CSV of (path, dir, exec, flags) per observed access.
func CSV(store *model.Store, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range store.All() {
		row, err := csvRow(rec)
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(rec *model.FileRecord) ([]string, error) {
	accessedAs, err := encodeAccesses(rec.Accesses())
	if err != nil {
		return nil, err
	}
	return []string{
		rec.RealPath,
		rec.WasEverCreated.String(),
		rec.WasEverDeleted.String(),
		rec.IsCurrentlyOnDisk.String(),
		rec.WasInitiallyOnDisk.String(),
		string(rec.Kind),
		accessedAs,
	}, nil
}

// encodeAccesses renders the per-access (path, dir, exec, flags) tuples as
// their own CSV document written to an in-memory buffer, matching the
// "embedded CSV" wording of spec.md §6 literally rather than flattening
// them into a single delimited string.
func encodeAccesses(accesses []model.AccessRecord) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	for _, a := range accesses {
		flags := ""
		if a.HasFlags {
			flags = strconv.FormatInt(a.OpenFlags, 10)
		}
		exec := "false"
		if a.Executable {
			exec = "true"
		}
		if err := w.Write([]string{a.RelPath, a.Workdir, exec, flags}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
