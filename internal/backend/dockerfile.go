// Package backend is the back-end emitter of SPEC_FULL.md §4.11: it
// consumes the model's iteration API after the root task exits and
// produces a Dockerfile, a side-band tar+zstd archive, and a CSV dump.
package backend

import (
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/ctrtrace/tracecore/internal/model"
)

// Options configures Dockerfile rendering (SPEC_FULL.md §7.2's Options,
// the subset this package consumes).
type Options struct {
	BaseImage string
	// RunID tags the generated Dockerfile with a unique run identifier (a
	// v4 UUID minted once per trace in internal/command), so a user diffing
	// two Dockerfiles from repeated traces of the same command can tell
	// which run produced which file without relying on mtimes.
	RunID string
}

const dockerfileTemplate = `{{if .RunID}}# tracecore run: {{.RunID}}
{{end}}FROM {{.BaseImage}}
{{range .Mkdirs}}RUN mkdir -p {{.}}
{{end}}{{range .Copies}}COPY {{.Src}} {{.Dst}}
{{end}}`

var tmpl = template.Must(template.New("dockerfile").Parse(dockerfileTemplate))

type copyLine struct {
	Src, Dst string
}

type dockerfileData struct {
	RunID     string
	BaseImage string
	Mkdirs    []string
	Copies    []copyLine
}

// Dockerfile renders a Dockerfile from every FileRecord currently on disk:
// one COPY per regular file, one RUN mkdir -p per directory whose children
// were fully enumerated (requires_all_children), grouped and sorted for
// deterministic output.
func Dockerfile(store *model.Store, opt Options) (string, error) {
	base := opt.BaseImage
	if base == "" {
		base = "scratch"
	}

	var mkdirs []string
	var copies []copyLine
	for _, rec := range store.Files() {
		if rec.IsCurrentlyOnDisk != model.True {
			continue
		}
		switch rec.Kind {
		case model.KindDirectory:
			if rec.RequiresAllChildren {
				mkdirs = append(mkdirs, rec.RealPath)
			}
		case model.KindRegularFile:
			copies = append(copies, copyLine{Src: strings.TrimPrefix(rec.RealPath, "/"), Dst: rec.RealPath})
		}
	}
	sort.Strings(mkdirs)
	sort.Slice(copies, func(i, j int) bool {
		return groupKey(copies[i].Dst) < groupKey(copies[j].Dst) ||
			(groupKey(copies[i].Dst) == groupKey(copies[j].Dst) && copies[i].Dst < copies[j].Dst)
	})

	var sb strings.Builder
	err := tmpl.Execute(&sb, dockerfileData{RunID: opt.RunID, BaseImage: base, Mkdirs: mkdirs, Copies: copies})
	return sb.String(), err
}

// groupKey is the parent directory a COPY line is grouped by when sorting
// (SPEC_FULL.md §4.11 "grouped by parent directory").
func groupKey(p string) string {
	return path.Dir(p)
}
