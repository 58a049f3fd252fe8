// Package render walks the immutable IR snapshot and hands each emission
// unit to the template engine: one file per named type, one per operation
// builder, the client glue, the module index and the project manifest.
package render

import (
	"context"
	"embed"
	"encoding/json"
	"sort"
	"strings"
	"text/template"

	"github.com/pixie-sh/errors-go"

	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/names"
)

//go:embed templates
var templates embed.FS

// Meta is the project metadata stamped into the manifest and module files.
// BaseURL is the document's first server URL, passed through to the emitted
// client as its default endpoint.
type Meta struct {
	Name    string
	Version string
	BaseURL string
}

// Driver renders the snapshot into a sink.
type Driver struct {
	snap  *ir.Snapshot
	sink  FileSink
	meta  Meta
	diags *ir.DiagnosticBag

	files []string
}

// NewDriver creates a driver over a checked snapshot.
func NewDriver(snap *ir.Snapshot, sink FileSink, meta Meta, diags *ir.DiagnosticBag) *Driver {
	return &Driver{snap: snap, sink: sink, meta: meta, diags: diags}
}

// Emit renders every emission unit and finally writes a manifest of emitted
// files. Cancellation stops new writes; files already written stay on disk
// and are the caller's to clean up.
func (d *Driver) Emit(ctx context.Context) ([]string, error) {
	pkg := packageName(d.meta.Name)
	module := modulePath(d.meta.Name)

	for _, id := range d.snap.TopologicalTypes() {
		t := d.snap.Type(id)
		if !emitsFile(t) {
			continue
		}
		view := newModelView(d.snap, "models", t)
		if err := d.render(ctx, "models/"+names.ToSnake(t.Name)+".go", "model.go.tmpl", view); err != nil {
			return d.files, err
		}
	}

	var constructors []string
	for _, op := range d.snap.Operations {
		for _, view := range newBuilderViews(d.snap, op, pkg, module) {
			constructors = append(constructors, view.Constructor)
			if err := d.render(ctx, "builders/"+names.ToSnake(view.Constructor)+".go", "builder.go.tmpl", view); err != nil {
				return d.files, err
			}
		}
	}

	clientCtx := clientView{
		Package: pkg,
		Name:    d.meta.Name,
		Version: d.meta.Version,
		BaseURL: d.meta.BaseURL,
	}
	if err := d.render(ctx, "client.go", "client.go.tmpl", clientCtx); err != nil {
		return d.files, err
	}

	docCtx := docView{Package: pkg, Name: d.meta.Name, Constructors: constructors}
	if err := d.render(ctx, "doc.go", "doc.go.tmpl", docCtx); err != nil {
		return d.files, err
	}

	modCtx := modView{Module: module}
	if err := d.render(ctx, "go.mod", "gomod.tmpl", modCtx); err != nil {
		return d.files, err
	}

	if err := d.manifest(ctx); err != nil {
		return d.files, err
	}
	return d.files, nil
}

type clientView struct {
	Package string
	Name    string
	Version string
	BaseURL string
}

type docView struct {
	Package      string
	Name         string
	Constructors []string
}

type modView struct {
	Module string
}

// render executes one template and writes the result through the sink.
func (d *Driver) render(ctx context.Context, path, templateName string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "generation cancelled before writing %s", path)
	}

	content, err := templates.ReadFile("templates/" + templateName)
	if err != nil {
		return errors.Wrap(err, "failed to read template: %s", templateName)
	}

	tmpl, err := template.New(templateName).Funcs(template.FuncMap{
		"trimStar": func(s string) string { return strings.TrimPrefix(s, "*") },
	}).Parse(string(content))
	if err != nil {
		return errors.Wrap(err, "failed to parse template: %s", templateName)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return errors.Wrap(err, "failed to execute template: %s", templateName)
	}

	if err := d.sink.Write(path, []byte(buf.String())); err != nil {
		return err
	}
	d.files = append(d.files, path)
	return nil
}

// manifest writes the sorted list of emitted files with the project metadata.
func (d *Driver) manifest(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "generation cancelled before writing manifest")
	}

	sorted := make([]string, len(d.files))
	copy(sorted, d.files)
	sort.Strings(sorted)

	payload, err := json.MarshalIndent(struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		Files   []string `json:"files"`
	}{
		Name:    d.meta.Name,
		Version: d.meta.Version,
		Files:   sorted,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	payload = append(payload, '\n')

	if err := d.sink.Write("manifest.json", payload); err != nil {
		return err
	}
	d.files = append(d.files, "manifest.json")
	return nil
}

// packageName sanitizes the project name into a Go package identifier.
func packageName(name string) string {
	pkg := strings.ReplaceAll(names.ToSnake(name), "_", "")
	if pkg == "" {
		return "client"
	}
	if pkg[0] >= '0' && pkg[0] <= '9' {
		pkg = "c" + pkg
	}
	return pkg
}

// modulePath derives the generated module path from the project name.
func modulePath(name string) string {
	path := strings.TrimSpace(name)
	if path == "" {
		return "client"
	}
	return strings.ReplaceAll(path, " ", "-")
}
