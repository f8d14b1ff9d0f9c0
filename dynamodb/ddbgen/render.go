package ddbgen

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"quote": strconv.Quote,
	"join":  strings.Join,
	"stringSlice": func(s []string) string {
		if len(s) == 0 {
			return "[]string(nil)"
		}
		q := make([]string, len(s))
		for i, v := range s {
			q[i] = strconv.Quote(v)
		}
		return "[]string{" + strings.Join(q, ", ") + "}"
	},
	"hasKeysOnly": func(qs []queryData) bool {
		for _, q := range qs {
			if q.KeysOnly {
				return true
			}
		}
		return false
	},
}).ParseFS(templateFS, "templates/*.tmpl"))

type modelFile struct {
	packageData
	Model modelData
}

type unitFile struct {
	packageData
	Dispatcher dispatcherData
	Trigger    triggerData
	Enricher   enricherData
}

type renderJob struct {
	tmplName string
	// fileName is relative to the output directory.
	fileName string
	data     any
}

func jobsOf(data packageData) []renderJob {
	jobs := []renderJob{{"client.go.tmpl", "tables_gen.go", data}}
	if len(data.Enums) > 0 {
		jobs = append(jobs, renderJob{"enums.go.tmpl", "enums_gen.go", data})
	}
	for _, m := range data.Models {
		jobs = append(jobs, renderJob{"model.go.tmpl", snake(m.Name) + "_gen.go", modelFile{data, m}})
	}
	if len(data.Dispatchers) > 0 {
		jobs = append(jobs, renderJob{"cdc.go.tmpl", "cdc_gen.go", data})
	}
	for _, d := range data.Dispatchers {
		jobs = append(jobs, renderJob{"dispatcher_main.go.tmpl", path.Join("cmd", d.Dir, "main.go"), unitFile{packageData: data, Dispatcher: d}})
	}
	for _, t := range data.Triggers {
		jobs = append(jobs, renderJob{"trigger_main.go.tmpl", path.Join("cmd", t.Dir, "main.go"), unitFile{packageData: data, Trigger: t}})
	}
	for _, e := range data.Enrichers {
		jobs = append(jobs, renderJob{"enricher_main.go.tmpl", path.Join("cmd", e.Dir, "main.go"), unitFile{packageData: data, Enricher: e}})
	}
	return jobs
}

// render executes every template of the package and formats the result. The
// returned files are keyed by their path relative to the output directory.
func render(data packageData) (map[string][]byte, error) {
	out := map[string][]byte{}
	for _, job := range jobsOf(data) {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, job.tmplName, job.data); err != nil {
			return nil, fmt.Errorf("execute template %s: %w", job.tmplName, err)
		}
		formatted, err := imports.Process(job.fileName, buf.Bytes(), nil)
		if err != nil {
			return nil, &FormatError{File: job.fileName, Source: buf.Bytes(), Err: err}
		}
		out[job.fileName] = formatted
	}
	return out, nil
}

// FormatError reports generated source that does not parse. Source holds
// the unformatted output for inspection.
type FormatError struct {
	File   string
	Source []byte
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %s: %v", e.File, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
