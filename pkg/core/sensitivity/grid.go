// Package sensitivity re-runs the valuation across a sweep of perturbed assumptions.
// Infeasible cells are recorded as gaps; they never abort the grid.
package sensitivity

import (
	"encoding/json"
	"errors"
	"fmt"

	"valux/pkg/core/assumption"
)

const (
	// MaxSteps bounds the steps on each side of an axis
	MaxSteps = 50

	// MaxCells bounds the cells of one table
	MaxCells = 2601
)

// AxisSpec describes one sweep axis centered on the base value of Field.
// Values are base + i*Step (or base*(1 + i*Step) when Relative), i = -Steps..Steps.
type AxisSpec struct {
	Field    assumption.Field `json:"field" yaml:"field"`
	Step     float64          `json:"step" yaml:"step"`
	Steps    int              `json:"steps" yaml:"steps"` // per side
	Relative bool             `json:"relative,omitempty" yaml:"relative,omitempty"`
}

// Validate checks the axis itself, independent of any base assumption
func (s AxisSpec) Validate() error {
	if _, err := assumption.ParseField(string(s.Field)); err != nil {
		return err
	}
	if !(s.Step > 0) {
		return fmt.Errorf("axis %s: step must be positive, got %v", s.Field, s.Step)
	}
	if s.Steps < 0 || s.Steps > MaxSteps {
		return fmt.Errorf("axis %s: steps must be within [0, %d], got %d", s.Field, MaxSteps, s.Steps)
	}
	return nil
}

// Len is the number of values on the axis
func (s AxisSpec) Len() int { return 2*s.Steps + 1 }

// Values returns the ordered axis values around base. The center entry is base itself.
func (s AxisSpec) Values(base float64) []float64 {
	out := make([]float64, 0, s.Len())
	for i := -s.Steps; i <= s.Steps; i++ {
		if i == 0 {
			out = append(out, base)
			continue
		}
		if s.Relative {
			out = append(out, base*(1+float64(i)*s.Step))
		} else {
			out = append(out, base+float64(i)*s.Step)
		}
	}
	return out
}

// TableSpec pairs a row axis with an optional column axis.
// A nil Cols sweeps Rows alone and yields a single-column table.
type TableSpec struct {
	Rows AxisSpec  `json:"rows" yaml:"rows"`
	Cols *AxisSpec `json:"cols,omitempty" yaml:"cols,omitempty"`
}

// Validate checks both axes, rejects sweeping the same field twice and caps the table size
func (t TableSpec) Validate() error {
	if err := t.Rows.Validate(); err != nil {
		return err
	}
	if t.Cols == nil {
		return nil
	}
	if err := t.Cols.Validate(); err != nil {
		return err
	}
	if t.Cols.Field == t.Rows.Field {
		return fmt.Errorf("rows and cols both sweep %s", t.Rows.Field)
	}
	if cells := t.Rows.Len() * t.Cols.Len(); cells > MaxCells {
		return fmt.Errorf("table of %d cells exceeds the %d cell limit", cells, MaxCells)
	}
	return nil
}

// GridConfig holds the two required tables
type GridConfig struct {
	GrowthMargin TableSpec `json:"growth_margin" yaml:"growth_margin"`
	WACC         TableSpec `json:"wacc" yaml:"wacc"`
}

// DefaultGridConfig sweeps Year 2-5 growth x target margin by +/-5 points in 1 point steps,
// and WACC alone by +/-3 steps of half a point.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		GrowthMargin: TableSpec{
			Rows: AxisSpec{Field: assumption.FieldRevenueGrowthY2Y5, Step: 0.01, Steps: 5},
			Cols: &AxisSpec{Field: assumption.FieldTargetEBITMargin, Step: 0.01, Steps: 5},
		},
		WACC: TableSpec{
			Rows: AxisSpec{Field: assumption.FieldWACC, Step: 0.005, Steps: 3},
		},
	}
}

// Cell is one grid entry. Err is set when the perturbed assumptions are infeasible.
type Cell struct {
	Value float64 `json:"value"`
	Err   error   `json:"-"`
}

// OK reports whether the cell holds a computed per-share value
func (c Cell) OK() bool { return c.Err == nil }

type cellJSON struct {
	Value *float64 `json:"value"`
	Error string   `json:"error,omitempty"`
}

// MarshalJSON writes gaps as a null value plus the failure reason
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Err != nil {
		return json.Marshal(cellJSON{Error: c.Err.Error()})
	}
	v := c.Value
	return json.Marshal(cellJSON{Value: &v})
}

// UnmarshalJSON restores a cell written by MarshalJSON
func (c *Cell) UnmarshalJSON(data []byte) error {
	var w cellJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Cell{}
	if w.Value == nil {
		msg := w.Error
		if msg == "" {
			msg = "not computable"
		}
		c.Err = errors.New(msg)
		return nil
	}
	c.Value = *w.Value
	return nil
}

// Table is a computed sweep. Cells[i][j] pairs RowValues[i] with ColValues[j].
type Table struct {
	RowField  assumption.Field `json:"row_field"`
	ColField  assumption.Field `json:"col_field,omitempty"`
	RowValues []float64        `json:"row_values"`
	ColValues []float64        `json:"col_values,omitempty"`
	Cells     [][]Cell         `json:"cells"`
}

// Center returns the base-case cell of a symmetric sweep
func (t *Table) Center() Cell {
	i := len(t.RowValues) / 2
	j := 0
	if len(t.ColValues) > 0 {
		j = len(t.ColValues) / 2
	}
	return t.Cells[i][j]
}

// Gaps counts not-computable cells
func (t *Table) Gaps() int {
	n := 0
	for _, row := range t.Cells {
		for _, c := range row {
			if !c.OK() {
				n++
			}
		}
	}
	return n
}

// Grid holds both sensitivity tables
type Grid struct {
	GrowthMargin *Table `json:"growth_margin"`
	WACC         *Table `json:"wacc"`
}
