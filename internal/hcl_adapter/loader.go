package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/dosgrid/internal/config"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".hcl"}
}

// Load parses every .hcl file found under paths and merges their blocks into
// one model. Files are read in lexical order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, l.Extensions()...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.New()
	parser := hclparse.NewParser()
	evalCtx := evalContext()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		part, err := l.decode(ctx, hclFile.Body, evalCtx, file)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(part); err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.", "actors", len(model.Actors), "samplers", len(model.Samplers), "links", len(model.Links))
	return model, nil
}

// LoadSource parses a single in-memory HCL document. filename is only used
// in diagnostics.
func (l *Loader) LoadSource(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL source %s: %w", filename, diags)
	}
	part, err := l.decode(ctx, hclFile.Body, evalContext(), filename)
	if err != nil {
		return nil, err
	}
	model := config.New()
	if err := model.Merge(part); err != nil {
		return nil, err
	}
	return model, nil
}

func (l *Loader) decode(ctx context.Context, body hcl.Body, evalCtx *hcl.EvalContext, file string) (*config.Model, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	part := config.New()
	if len(root.Network) > 1 {
		return nil, fmt.Errorf("in %s: at most one network block is allowed per file", file)
	}
	for _, n := range root.Network {
		part.Settings = translateSettings(n)
	}
	for _, b := range root.Actors {
		a, err := translateActor(ctx, b, evalCtx)
		if err != nil {
			return nil, err
		}
		part.Actors = append(part.Actors, a)
	}
	for _, b := range root.Samplers {
		part.Samplers = append(part.Samplers, translateSampler(b))
	}
	for _, b := range root.Links {
		link, err := translateLink(ctx, b, evalCtx)
		if err != nil {
			return nil, err
		}
		part.Links = append(part.Links, link)
	}
	return part, nil
}
