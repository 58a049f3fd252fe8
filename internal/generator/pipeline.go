// Package generator wires the pipeline: load the document, resolve
// references, normalize schemas and synthesize operations into the IR, check
// its invariants, then hand the immutable snapshot to the renderer driver.
package generator

import (
	"context"
	"path/filepath"

	"github.com/pixie-sh/clientgen-cli/internal/generator/config"
	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/names"
	"github.com/pixie-sh/clientgen-cli/internal/generator/normalize"
	"github.com/pixie-sh/clientgen-cli/internal/generator/render"
	"github.com/pixie-sh/clientgen-cli/internal/generator/resolve"
	"github.com/pixie-sh/clientgen-cli/internal/generator/spec"
	"github.com/pixie-sh/clientgen-cli/internal/generator/synth"
)

// Options parameterize one generation run. When Sink is nil and OutDir is
// set, the output tree is written under <OutDir>/<project name>/.
type Options struct {
	SpecBytes      []byte
	Config         config.Config
	Sink           render.FileSink
	OutDir         string
	ProjectName    string
	ProjectVersion string
}

// Result carries the IR snapshot, the accumulated non-fatal diagnostics and
// the list of emitted files.
type Result struct {
	Snapshot    *ir.Snapshot
	Diagnostics []ir.Diagnostic
	Files       []string
}

// Run executes the full pipeline. The core stages are strictly sequential;
// no file is written before the snapshot passes its invariant check.
func Run(ctx context.Context, opts Options) (*Result, error) {
	doc, err := spec.Load(opts.SpecBytes)
	if err != nil {
		return nil, NewFailure(FailInput, err)
	}

	diags := ir.NewDiagnosticBag()
	for _, external := range doc.Externals {
		diags.Notef(external.Pointer, "external reference %s not followed", external.Ref)
	}

	resolver := resolve.New(doc.T)
	alloc := names.New(&opts.Config, diags)
	table := ir.NewTable()
	norm := normalize.New(doc, resolver, alloc, table, &opts.Config, diags)
	synthesizer := synth.New(doc, norm, alloc, &opts.Config, diags)

	// Paths first, then remaining components, so TypeId assignment follows
	// the deterministic traversal order.
	operations, err := synthesizer.Operations()
	if err != nil {
		return nil, NewFailure(FailGenerate, err)
	}
	if err := norm.Components(); err != nil {
		return nil, NewFailure(FailGenerate, err)
	}

	title, version := "", ""
	if doc.Info != nil {
		title = doc.Info.Title
		version = doc.Info.Version
	}
	name := firstNonEmpty(opts.ProjectName, opts.Config.ProjectMetadata.Name, names.ToSnake(title), "client")
	projectVersion := firstNonEmpty(opts.ProjectVersion, opts.Config.ProjectMetadata.Version, version, "0.1.0")

	snapshot := &ir.Snapshot{
		Types:      table.All(),
		Operations: operations,
		RootModule: name,
	}
	if err := snapshot.Check(); err != nil {
		return nil, NewFailure(FailGenerate, err)
	}

	result := &Result{Snapshot: snapshot, Diagnostics: diags.List()}
	sink := opts.Sink
	if sink == nil {
		if opts.OutDir == "" {
			return result, nil
		}
		sink = render.NewDirSink(filepath.Join(opts.OutDir, name))
	}

	meta := render.Meta{Name: name, Version: projectVersion}
	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		meta.BaseURL = doc.Servers[0].URL
	}

	driver := render.NewDriver(snapshot, sink, meta, diags)
	files, err := driver.Emit(ctx)
	result.Files = files
	result.Diagnostics = diags.List()
	if err != nil {
		return result, NewFailure(FailIO, err)
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
