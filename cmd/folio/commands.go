package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/valuation"
)

var commands = []subcommands.Command{
	&resolveCmd{},
	&classifyCmd{},
	&importCmd{},
	&refreshCmd{},
	&valueCmd{},
	&mcpCmd{},
	&versionCmd{},
}

// withApp builds the App for one command and closes it afterwards.
func withApp(fn func(a *app.App) error) subcommands.ExitStatus {
	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := fn(a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type resolveCmd struct {
	date   string
	user   string
	budget time.Duration
}

func (*resolveCmd) Name() string     { return "resolve" }
func (*resolveCmd) Synopsis() string { return "resolve current or historical prices for tickers" }
func (*resolveCmd) Usage() string {
	return `folio resolve [-d YYYY-MM-DD] [-u user] [-budget 90s] <ticker>...

  Resolves one price per ticker. Every ticker gets a price; the source
  column says whether it came from a provider, the user's own history or
  the synthetic default. Tickers missing from the output ran out of budget.
`
}

func (c *resolveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "historical date (YYYY-MM-DD); empty for current prices")
	f.StringVar(&c.user, "u", "", "user whose transactions may be used as a price source")
	f.DurationVar(&c.budget, "budget", 0, "time budget for the whole batch (default from config)")
}

func (c *resolveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one ticker is required")
		return subcommands.ExitUsageError
	}

	var date *time.Time
	if c.date != "" {
		d, err := models.ParseDate(c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		date = &d
	}

	requests := make([]models.PriceRequest, 0, f.NArg())
	for _, t := range f.Args() {
		req, err := models.NewPriceRequest(t, date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", t, err)
			return subcommands.ExitUsageError
		}
		requests = append(requests, req)
	}

	return withApp(func(a *app.App) error {
		user := c.user
		if user == "" {
			user = a.Config.DefaultUser
		}
		result := a.Batch.ResolveBatch(ctx, requests, user, c.budget)
		return writeQuotes(os.Stdout, requests, result)
	})
}

func writeQuotes(out io.Writer, requests []models.PriceRequest, result models.BatchResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tPRICE\tAS OF\tSOURCE\tPROVIDER\tCONFIDENCE")
	seen := make(map[models.PriceRequest]bool, len(requests))
	for _, req := range requests {
		if seen[req] {
			continue
		}
		seen[req] = true
		q, _ := result.Lookup(req)
		if q == nil {
			fmt.Fprintf(w, "%s\t-\t-\tunresolved\t-\t-\n", req.Ticker())
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			req.Ticker(), q.Price().StringFixed(2), q.AsOf().Format(models.DateLayout), q.Source(), q.Provider(), q.Confidence())
	}
	return w.Flush()
}

type classifyCmd struct{}

func (*classifyCmd) Name() string     { return "classify" }
func (*classifyCmd) Synopsis() string { return "classify tickers as equity or mutual fund (offline)" }
func (*classifyCmd) Usage() string {
	return `folio classify <ticker>...

  Prints kind, scheme code, fund house, guessed sector and the synthetic
  default price for each ticker. No configuration or network is needed.
`
}

func (*classifyCmd) SetFlags(*flag.FlagSet) {}

func (*classifyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one ticker is required")
		return subcommands.ExitUsageError
	}
	config := common.NewDefaultConfig()
	defaults := instrument.NewDefaults(config.Pricing.EquityDefaultPrice, config.Pricing.FundDefaultPrice)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tKIND\tSCHEME\tFUND HOUSE\tSECTOR\tDEFAULT")
	for _, t := range f.Args() {
		c := instrument.Describe(t, defaults)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Ticker, c.Kind, dash(c.SchemeCode), dash(c.FundHouse), c.Sector, c.DefaultPrice.StringFixed(2))
	}
	w.Flush()
	return subcommands.ExitSuccess
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type importCmd struct {
	user  string
	inbox bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import broker CSV transaction files" }
func (*importCmd) Usage() string {
	return `folio import [-u user] <file.csv>...
folio import -inbox [-u user]

  Imports transaction files and fills missing prices. Files already
  imported (same content) are reported and skipped.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "u", "", "owner of the imported transactions")
	f.BoolVar(&c.inbox, "inbox", false, "import every file in the configured inbox directory")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.inbox && f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "a file or -inbox is required")
		return subcommands.ExitUsageError
	}

	return withApp(func(a *app.App) error {
		user := c.user
		if user == "" {
			user = a.Config.DefaultUser
		}

		if c.inbox {
			results, err := a.Importer.ImportInbox(ctx, user)
			if err != nil {
				return err
			}
			for _, r := range results {
				printImport(r)
			}
			return nil
		}

		var failed []string
		for _, path := range f.Args() {
			if err := importFile(ctx, a, user, path); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				failed = append(failed, path)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d file(s) failed: %s", len(failed), strings.Join(failed, ", "))
		}
		return nil
	})
}

func importFile(ctx context.Context, a *app.App, user, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	result, err := a.Importer.Import(ctx, user, path, file)
	if result != nil && result.Duplicate {
		fmt.Printf("%s: already imported as %s\n", path, result.File.ID)
		return nil
	}
	if err != nil {
		return err
	}
	printImport(result)
	return nil
}

func printImport(r *models.ImportResult) {
	name := "?"
	if r.File != nil {
		name = r.File.OriginalFilename
	}
	if r.Duplicate {
		fmt.Printf("%s: duplicate, skipped\n", name)
		return
	}
	fmt.Printf("%s: %d rows, %d recorded, %d resolved, %d unresolved, %d skipped\n",
		name, r.Rows, r.Recorded, r.Resolved, r.Unresolved, r.Skipped)
	for _, warn := range r.Warnings {
		fmt.Printf("  warning: %s\n", warn)
	}
}

type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "refresh the instrument cache for every held ticker" }
func (*refreshCmd) Usage() string {
	return `folio refresh

  Refreshes price, sector and market cap for every held ticker, funds
  first. Slow providers can make this take several minutes.
`
}

func (*refreshCmd) SetFlags(*flag.FlagSet) {}

func (*refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app.App) error {
		report, err := a.StockData.Refresh(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("funds=%d equities=%d updated=%d failed=%d sectors_updated=%d elapsed=%s\n",
			report.Funds, report.Equities, report.Updated, report.Failed, report.SectorsUpdated, report.Elapsed.Round(time.Millisecond))
		return nil
	})
}

type valueCmd struct {
	user  string
	chart string
	by    string
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value a user's holdings at current prices" }
func (*valueCmd) Usage() string {
	return `folio value [-u user] [-chart out.png [-by sector|channel]]
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "u", "", "user to value")
	f.StringVar(&c.chart, "chart", "", "write an allocation pie chart to this PNG file")
	f.StringVar(&c.by, "by", "sector", "chart allocation by sector or channel")
}

func (c *valueCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app.App) error {
		user := c.user
		if user == "" {
			user = a.Config.DefaultUser
		}
		v, err := a.Valuation.GetValuation(ctx, user)
		if err != nil {
			return err
		}
		writeValuation(os.Stdout, v)

		if c.chart == "" {
			return nil
		}
		slices := v.BySector
		if c.by == "channel" {
			slices = v.ByChannel
		}
		png, err := valuation.RenderAllocationChart("Allocation by "+c.by, slices)
		if err != nil {
			return err
		}
		return os.WriteFile(c.chart, png, 0644)
	})
}

func writeValuation(out io.Writer, v *models.Valuation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "TICKER\tQTY\tAVG COST\tVALUE\tP&L\tP&L %\tCONFIDENCE\t")
	for _, h := range v.Holdings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			h.Ticker, h.Quantity.String(), valuation.FormatINR(h.AverageCost), h.DisplayValue, h.DisplayPnL, h.PnLPercent.StringFixed(2), h.Confidence)
	}
	w.Flush()
	fmt.Fprintf(out, "\nTotal value %s, invested %s, P&L %s (%s%%)\n",
		v.DisplayTotalValue, valuation.FormatINR(v.TotalInvested), v.DisplayTotalPnL, v.TotalPnLPercent.StringFixed(2))
	if v.EstimatedHoldings > 0 {
		fmt.Fprintf(out, "%d holding(s) priced from estimates\n", v.EstimatedHoldings)
	}
}

type versionCmd struct{}

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "print version information" }
func (*versionCmd) Usage() string          { return "folio version\n" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}

func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	common.LoadVersionFromFile()
	fmt.Println(common.GetFullVersion())
	return subcommands.ExitSuccess
}
