package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"valux/pkg/core/assumption"
	"valux/pkg/core/config"
	"valux/pkg/core/projection"
	"valux/pkg/core/provider"
	"valux/pkg/core/sensitivity"
	"valux/pkg/core/store"
	"valux/pkg/core/valuation"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Load environment variables
	godotenv.Load()

	var err error
	switch os.Args[1] {
	case "value":
		err = cmdValue(os.Args[2:])
	case "sensitivity":
		err = cmdSensitivity(os.Args[2:])
	case "runs":
		err = cmdRuns(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  valux value --snapshot examples/acme.yaml --assumptions examples/acme_assumptions.yaml")
	fmt.Println("  valux value --snapshot examples/acme.yaml --defaults examples/acme_market.yaml --set wacc=0.085")
	fmt.Println("  valux sensitivity --snapshot examples/acme.yaml --assumptions examples/acme_assumptions.yaml --save")
	fmt.Println("  valux runs --ticker ACME")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - rates are fractions (0.09 = 9%)")
	fmt.Printf("  - --set accepts: %s\n", strings.Join(fieldNames(), ", "))
}

func fieldNames() []string {
	out := make([]string, len(assumption.Fields))
	for i, f := range assumption.Fields {
		out[i] = string(f)
	}
	return out
}

// overrideFlags collects repeated --set field=value flags
type overrideFlags []string

func (o *overrideFlags) String() string { return strings.Join(*o, ",") }

func (o *overrideFlags) Set(v string) error {
	*o = append(*o, v)
	return nil
}

// runFlags are shared by value and sensitivity
type runFlags struct {
	fs          *flag.FlagSet
	snapshot    *string
	assumptions *string
	defaults    *string
	cfgPath     *string
	marketPrice *float64
	save        *bool
	overrides   overrideFlags
}

func newRunFlags(name string) *runFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	rf := &runFlags{
		fs:          fs,
		snapshot:    fs.String("snapshot", "", "Path to company snapshot (YAML or JSON)"),
		assumptions: fs.String("assumptions", "", "Path to assumption set (YAML, JSON or HJSON)"),
		defaults:    fs.String("defaults", "", "Path to market profile YAML; derives assumptions when --assumptions is absent"),
		cfgPath:     fs.String("config", "", "Path to valux.yaml (default: $VALUX_CONFIG or config/valux.yaml)"),
		marketPrice: fs.Float64("market-price", 0, "Optional: market price per share for gap analysis"),
		save:        fs.Bool("save", false, "Persist the run to the repository"),
	}
	fs.Var(&rf.overrides, "set", "Override one assumption, field=value (repeatable)")
	return rf
}

type prepared struct {
	cfg         *config.Config
	snapshot    projection.HistoricalSnapshot
	assumptions assumption.AssumptionSet
}

func (rf *runFlags) prepare(ctx context.Context) (*prepared, error) {
	if *rf.snapshot == "" {
		return nil, fmt.Errorf("--snapshot is required")
	}
	cfg, err := config.Load(*rf.cfgPath)
	if err != nil {
		return nil, err
	}
	snap, err := provider.LoadSnapshot(*rf.snapshot)
	if err != nil {
		return nil, err
	}

	var base provider.Provider
	switch {
	case *rf.assumptions != "":
		base = &provider.FileProvider{Path: *rf.assumptions}
	case *rf.defaults != "":
		d, err := provider.LoadDefaults(*rf.defaults)
		if err != nil {
			return nil, err
		}
		base = d
	default:
		return nil, fmt.Errorf("one of --assumptions or --defaults is required")
	}

	overrides, err := provider.ParseOverrides(rf.overrides)
	if err != nil {
		return nil, err
	}
	a, err := provider.WithOverrides(base, overrides).Assumptions(ctx, snap)
	if err != nil {
		return nil, err
	}
	return &prepared{cfg: cfg, snapshot: snap, assumptions: a}, nil
}

func cmdValue(args []string) error {
	rf := newRunFlags("value")
	_ = rf.fs.Parse(args)

	ctx := context.Background()
	p, err := rf.prepare(ctx)
	if err != nil {
		return err
	}

	res, err := p.cfg.Valuator().Value(p.snapshot, p.assumptions)
	if err != nil {
		return err
	}

	printHeader(p.snapshot, p.assumptions)
	printProjection(res)
	printBridge(res)

	gap, err := maybeGap(res, *rf.marketPrice)
	if err != nil {
		return err
	}

	if *rf.save {
		run := store.NewRun(store.ModeDCF, p.snapshot, p.assumptions)
		run.Result = res
		run.Gap = gap
		return saveRun(ctx, p.cfg, run)
	}
	return nil
}

func cmdSensitivity(args []string) error {
	rf := newRunFlags("sensitivity")
	_ = rf.fs.Parse(args)

	ctx := context.Background()
	p, err := rf.prepare(ctx)
	if err != nil {
		return err
	}

	res, err := p.cfg.Valuator().Value(p.snapshot, p.assumptions)
	if err != nil {
		return err
	}
	grid, err := p.cfg.SensitivityEngine(p.snapshot).BuildSensitivity(p.assumptions, p.cfg.Sensitivity)
	if err != nil {
		return err
	}

	printHeader(p.snapshot, p.assumptions)
	printBridge(res)
	printTable("Growth (Y2-5) x Target EBIT margin", grid.GrowthMargin)
	printTable("WACC", grid.WACC)

	gap, err := maybeGap(res, *rf.marketPrice)
	if err != nil {
		return err
	}

	if *rf.save {
		run := store.NewRun(store.ModeSensitivity, p.snapshot, p.assumptions)
		run.Result = res
		run.Sensitivity = grid
		run.Gap = gap
		return saveRun(ctx, p.cfg, run)
	}
	return nil
}

func cmdRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	ticker := fs.String("ticker", "", "Ticker to list")
	limit := fs.Int("n", 20, "Optional: limit to newest N runs (0=all)")
	cfgPath := fs.String("config", "", "Path to valux.yaml")
	_ = fs.Parse(args)

	if *ticker == "" {
		return fmt.Errorf("--ticker is required")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	repo, closeRepo := openRepo(ctx, cfg)
	defer closeRepo()

	runs, err := repo.ListByTicker(ctx, strings.ToUpper(*ticker), *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tMODE\tSOURCE\tPER SHARE")
	for _, r := range runs {
		perShare := "-"
		if r.Result != nil {
			perShare = fmt.Sprintf("%.2f", r.Result.PerShareValue)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.ValuationDate, r.Mode, r.Assumptions.Source, perShare)
	}
	return tw.Flush()
}

func maybeGap(res *valuation.ValuationResult, marketPrice float64) (*valuation.GapAnalysis, error) {
	if marketPrice <= 0 {
		return nil, nil
	}
	gap, err := valuation.AnalyzeGap(res, marketPrice)
	if err != nil {
		return nil, err
	}
	fmt.Printf("\nMarket price %.2f, DCF %.2f, gap %+.1f%%\n", gap.MarketPrice, gap.DCFPrice, gap.GapPct)
	fmt.Println(gap.Direction())
	return &gap, nil
}

func openRepo(ctx context.Context, cfg *config.Config) (*store.ValuationRepo, func()) {
	return store.OpenValuationRepo(ctx, cfg.Store.DatabaseURL, cfg.Store.CacheDir), store.Close
}

func saveRun(ctx context.Context, cfg *config.Config, run *store.Run) error {
	repo, closeRepo := openRepo(ctx, cfg)
	defer closeRepo()
	if err := repo.Save(ctx, run); err != nil {
		return err
	}
	fmt.Printf("\nSaved run %s\n", run.ID)
	return nil
}

func printHeader(s projection.HistoricalSnapshot, a assumption.AssumptionSet) {
	name := s.CompanyName
	if name == "" {
		name = s.Ticker
	}
	fmt.Printf("%s (%s) base year %d, currency %s\n", name, s.Ticker, s.BaseYear, s.Currency)
	fmt.Printf("Assumptions [%s]: g1=%.2f%% g2-5=%.2f%% margin=%.2f%% (C=%d) tax=%.1f%% WACC=%.2f%% RONIC=%.2f%% g*=%.2f%%\n\n",
		a.Source, a.RevenueGrowthYear1*100, a.RevenueGrowthY2Y5*100, a.TargetEBITMargin*100, a.ConvergenceYears,
		a.TaxRate*100, a.WACC*100, a.RONIC*100, a.TerminalGrowth()*100)
}

func printProjection(res *valuation.ValuationResult) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "YEAR\tGROWTH\tREVENUE\tMARGIN\tEBIT\tNOPAT\tREINVEST\tFCFF\tDF\t")
	for i, y := range res.Projection {
		fmt.Fprintf(tw, "%d\t%.2f%%\t%.2f\t%.2f%%\t%.2f\t%.2f\t%.2f\t%.2f\t%.4f\t\n",
			y.Year, y.Growth*100, y.Revenue, y.EBITMargin*100, y.EBIT, y.NOPAT, y.Reinvestment, y.FCFF, res.DiscountFactors[i])
	}
	t := res.Terminal
	fmt.Fprintf(tw, "TV\t%.2f%%\t\t\t\t%.2f\t\t%.2f\t\t\n", t.Growth*100, t.NOPAT, t.FCFF)
	tw.Flush()
	fmt.Println()
}

func printBridge(res *valuation.ValuationResult) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, item := range valuation.Summarize(res) {
		fmt.Fprintf(tw, "%s\t%.2f\n", item.Label, item.Value)
	}
	tw.Flush()
}

func printTable(title string, t *sensitivity.Table) {
	fmt.Printf("\n%s (per-share value, %d not computable)\n", title, t.Gaps())
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{string(t.RowField)}
	if len(t.ColValues) == 0 {
		header = append(header, "VALUE")
	}
	for _, cv := range t.ColValues {
		header = append(header, fmt.Sprintf("%.2f%%", cv*100))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for i, rv := range t.RowValues {
		row := []string{fmt.Sprintf("%.2f%%", rv*100)}
		for _, c := range t.Cells[i] {
			if c.OK() {
				row = append(row, fmt.Sprintf("%.2f", c.Value))
			} else {
				row = append(row, "n/a")
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	tw.Flush()
}
