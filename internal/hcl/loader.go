package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/equagrid/internal/config"
	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/fsutil"
	"github.com/specialistvlad/equagrid/internal/schema"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL dataset loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges their blocks into
// one dataset. Files are read in lexical order, which is also the order
// their parameter assignments are applied in.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Dataset, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := evalContext()
	t := newTranslator(evalCtx)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if err := diagsError(fmt.Sprintf("failed to parse HCL file %s", file), diags); err != nil {
			return nil, err
		}

		var root schema.File
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if err := diagsError(fmt.Sprintf("failed to decode HCL file %s", file), diags); err != nil {
			return nil, err
		}

		if err := t.addFile(file, &root); err != nil {
			return nil, err
		}
	}

	ds := t.dataset
	logger.Debug("HCL loading complete.",
		"index_sets", len(ds.IndexSets),
		"parameters", len(ds.Parameters),
		"inputs", len(ds.Inputs),
		"solvers", len(ds.Solvers),
		"ensemble", ds.Ensemble != nil)
	return ds, nil
}
