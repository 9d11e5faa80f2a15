package sensitivity

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"valux/pkg/core/assumption"
	"valux/pkg/core/projection"
	"valux/pkg/core/valuation"
)

// Engine sweeps assumptions for one company snapshot
type Engine struct {
	snapshot projection.HistoricalSnapshot
	valuator *valuation.Valuator
	workers  int
}

// NewEngine creates an engine. workers <= 0 selects runtime.NumCPU().
func NewEngine(snapshot projection.HistoricalSnapshot, valuator *valuation.Valuator, workers int) *Engine {
	if valuator == nil {
		valuator = valuation.NewValuator(valuation.Options{})
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{snapshot: snapshot, valuator: valuator, workers: workers}
}

// BuildSensitivity computes the growth x margin table and the WACC table
func (e *Engine) BuildSensitivity(base assumption.AssumptionSet, cfg GridConfig) (*Grid, error) {
	gm, err := e.BuildTable(base, cfg.GrowthMargin)
	if err != nil {
		return nil, fmt.Errorf("growth/margin table: %w", err)
	}
	wt, err := e.BuildTable(base, cfg.WACC)
	if err != nil {
		return nil, fmt.Errorf("wacc table: %w", err)
	}
	return &Grid{GrowthMargin: gm, WACC: wt}, nil
}

// BuildTable computes one sweep. Only an invalid TableSpec returns an error;
// per-cell failures are stored in the cells.
func (e *Engine) BuildTable(base assumption.AssumptionSet, spec TableSpec) (*Table, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	rowBase, _ := base.Get(spec.Rows.Field)
	t := &Table{
		RowField:  spec.Rows.Field,
		RowValues: spec.Rows.Values(rowBase),
	}
	cols := 1
	if spec.Cols != nil {
		colBase, _ := base.Get(spec.Cols.Field)
		t.ColField = spec.Cols.Field
		t.ColValues = spec.Cols.Values(colBase)
		cols = len(t.ColValues)
	}

	t.Cells = make([][]Cell, len(t.RowValues))
	for i := range t.Cells {
		t.Cells[i] = make([]Cell, cols)
	}

	// Each goroutine owns exactly one cell slot, so no locking is needed.
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, rv := range t.RowValues {
		i, rv := i, rv
		for j := 0; j < cols; j++ {
			j := j
			g.Go(func() error {
				overrides := []override{{spec.Rows.Field, rv}}
				if spec.Cols != nil {
					overrides = append(overrides, override{spec.Cols.Field, t.ColValues[j]})
				}
				t.Cells[i][j] = e.cell(base, overrides)
				return nil
			})
		}
	}
	_ = g.Wait()

	return t, nil
}

type override struct {
	field assumption.Field
	value float64
}

func (e *Engine) cell(base assumption.AssumptionSet, overrides []override) Cell {
	a := base
	for _, o := range overrides {
		next, err := a.With(o.field, o.value)
		if err != nil {
			return Cell{Err: err}
		}
		a = next
	}
	res, err := e.valuator.Value(e.snapshot, a)
	if err != nil {
		return Cell{Err: err}
	}
	return Cell{Value: res.PerShareValue}
}
