package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/unx2/internal/machine"
)

// LoadResult contains the tables loaded from a file or directory.
type LoadResult struct {
	Tables    []*machine.Table
	FileCount int
}

// Table returns the loaded table with the given name. An empty name
// selects the only table, if there is exactly one.
func (r *LoadResult) Table(name string) (*machine.Table, error) {
	if name == "" {
		if len(r.Tables) == 1 {
			return r.Tables[0], nil
		}
		return nil, fmt.Errorf("%d tables loaded, a table name is required", len(r.Tables))
	}
	for _, t := range r.Tables {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("table %q not found", name)
}

// Load compiles every table under path.
//
// A .cue file is compiled on its own; a directory is loaded as one CUE
// package instance, plus every .yaml/.yml file in it. Each CUE source
// declares tables under the top-level `table` field. Errors are collected:
// a bad table does not prevent the others from loading.
func Load(path string) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, []error{fmt.Errorf("table source not found: %w", err)}
	}

	if !info.IsDir() {
		return loadFile(path)
	}
	return loadDir(path)
}

func loadFile(path string) (*LoadResult, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("read %s: %w", path, err)}
	}

	result := &LoadResult{FileCount: 1}
	switch filepath.Ext(path) {
	case ".cue":
		ctx := cuecontext.New()
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, []error{formatCUEError(err)}
		}
		tables, errs := compileTables(v)
		result.Tables = tables
		return result, errs
	case ".yaml", ".yml":
		tbl, err := CompileYAML(path, data)
		if err != nil {
			return result, []error{err}
		}
		result.Tables = []*machine.Table{tbl}
		return result, nil
	}
	return nil, []error{fmt.Errorf("unsupported table file %s: want .cue, .yaml or .yml", path)}
}

func loadDir(dir string) (*LoadResult, []error) {
	cueFiles, yamlFiles, err := findTableFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scan %s: %w", dir, err)}
	}
	if len(cueFiles)+len(yamlFiles) == 0 {
		return nil, []error{fmt.Errorf("no table files found in %s", dir)}
	}

	result := &LoadResult{FileCount: len(cueFiles) + len(yamlFiles)}
	var errs []error

	if len(cueFiles) > 0 {
		ctx := cuecontext.New()
		instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
		if len(instances) == 0 {
			return nil, []error{fmt.Errorf("no CUE instances loaded from %s", dir)}
		}
		inst := instances[0]
		if inst.Err != nil {
			return nil, []error{fmt.Errorf("loading CUE files: %w", inst.Err)}
		}
		v := ctx.BuildInstance(inst)
		if err := v.Err(); err != nil {
			return nil, []error{formatCUEError(err)}
		}
		tables, cueErrs := compileTables(v)
		result.Tables = append(result.Tables, tables...)
		errs = append(errs, cueErrs...)
	}

	for _, path := range yamlFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", path, err))
			continue
		}
		tbl, err := CompileYAML(path, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		result.Tables = append(result.Tables, tbl)
	}

	return result, errs
}

// compileTables compiles each field of the top-level `table` struct.
func compileTables(v cue.Value) ([]*machine.Table, []error) {
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, []error{&CompileError{Field: "table", Message: "no tables defined", Pos: v.Pos()}}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var tables []*machine.Table
	var errs []error
	for iter.Next() {
		tbl, err := CompileTable(iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tables = append(tables, tbl)
	}
	return tables, errs
}

// findTableFiles lists the table sources directly inside dir, sorted.
func findTableFiles(dir string) (cueFiles, yamlFiles []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch filepath.Ext(e.Name()) {
		case ".cue":
			cueFiles = append(cueFiles, path)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, path)
		}
	}
	sort.Strings(cueFiles)
	sort.Strings(yamlFiles)
	return cueFiles, yamlFiles, nil
}
