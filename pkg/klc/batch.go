package klc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/footprint"
	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
)

// CheckSymbolFiles checks a batch of .kicad_sym files in parallel.
// A file that fails to parse gets a failed report instead of aborting
// the batch; reports come back sorted by filename. The returned error
// aggregates usage problems such as a bad component pattern.
func CheckSymbolFiles(ctx context.Context, files []string, rules []SymbolRule, opts *Options) ([]*Report, error) {
	if _, err := opts.componentMatcher(); err != nil {
		return nil, fmt.Errorf("bad component pattern %q: %w", opts.Component, err)
	}

	var mu sync.Mutex
	var reports []*Report
	var errs *multierror.Error

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.workers())
	for _, file := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			report := checkOneSymbolFile(file, rules, opts)
			mu.Lock()
			reports = append(reports, report)
			if report.Failure != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", file, report.Failure))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Filename < reports[j].Filename })
	return reports, errs.ErrorOrNil()
}

func checkOneSymbolFile(file string, rules []SymbolRule, opts *Options) *Report {
	lib, err := symbol.LoadPath(file)
	if err != nil {
		return &Report{Filename: file, Failure: err}
	}
	if err := lib.ResolveInheritance(); err != nil {
		return &Report{Filename: file, Library: lib.Name(), Failure: err}
	}
	report, err := CheckSymbolLibrary(lib, rules, opts)
	if err != nil {
		return &Report{Filename: file, Library: lib.Name(), Failure: err}
	}
	return report
}

// CheckFootprintFiles checks a batch of .kicad_mod files in parallel.
// Files from the same .pretty directory are grouped into one report.
func CheckFootprintFiles(ctx context.Context, files []string, rules []FootprintRule, opts *Options) ([]*Report, error) {
	matcher, err := opts.componentMatcher()
	if err != nil {
		return nil, fmt.Errorf("bad component pattern %q: %w", opts.Component, err)
	}

	var mu sync.Mutex
	byLib := map[string]*Report{}
	var errs *multierror.Error

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.workers())
	for _, file := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			fp, err := footprint.LoadFile(file)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, err)
				byLib[file] = &Report{Filename: file, Failure: err}
				return nil
			}
			if matcher != nil && !matcher.MatchString(fp.Name) {
				return nil
			}
			lib := fp.LibraryDir()
			report, ok := byLib[lib]
			if !ok {
				report = &Report{Filename: file, Library: lib}
				byLib[lib] = report
			}
			report.Entities = append(report.Entities, CheckFootprint(fp, rules, opts))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var reports []*Report
	for _, r := range byLib {
		sort.Slice(r.Entities, func(i, j int) bool { return r.Entities[i].Name < r.Entities[j].Name })
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Filename < reports[j].Filename })
	return reports, errs.ErrorOrNil()
}
