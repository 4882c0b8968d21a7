// expensectl runs the expense pipeline from the command line: load a
// bank-message export, sync it into a store and print the dashboard.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/expensemanager/core/internal/events"
	"github.com/expensemanager/core/internal/insights"
	"github.com/expensemanager/core/internal/logger"
	"github.com/expensemanager/core/internal/model"
	"github.com/expensemanager/core/internal/service"
	"github.com/expensemanager/core/internal/store"
)

type globals struct {
	Messages string `help:"Path to a JSON bank-message export." type:"existingfile"`
	Project  string `help:"GCP project ID; when set state persists to Firestore instead of memory." env:"EXPENSECTL_PROJECT"`
	Verbose  bool   `short:"v" help:"Enable debug logging."`
}

var cli struct {
	Globals globals `embed:""`

	Sync      syncCmd      `cmd:"" help:"Scan messages and persist extracted transactions."`
	Dashboard dashboardCmd `cmd:"" help:"Print the spend dashboard for a period."`
	Alias     aliasCmd     `cmd:"" help:"Manage merchant identities."`
	Exclude   excludeCmd   `cmd:"" help:"Toggle a merchant in or out of totals."`
	Insights  insightsCmd  `cmd:"" help:"Generate AI spending insights for a period."`
}

type syncCmd struct {
	Full bool `help:"Re-scan the full message history instead of the increment."`
}

type dashboardCmd struct {
	Period      string `default:"This Month" help:"Named period: This Week, This Month, Last Month, Last 3 Months, Last 6 Months, This Year, Last Year."`
	Granularity string `help:"Pin the series granularity (daily, weekly, monthly, quarterly, yearly)."`
}

type aliasCmd struct {
	Set    aliasSetCmd    `cmd:"" help:"Point a merchant at a display name and category."`
	Remove aliasRemoveCmd `cmd:"" help:"Revert a merchant to its default identity."`
	Rename aliasRenameCmd `cmd:"" help:"Rename a whole merchant group."`
}

type aliasSetCmd struct {
	Merchant string `arg:"" help:"Raw merchant token from the message."`
	Display  string `arg:"" help:"Display name to show."`
	Category string `help:"Category for the merchant." default:"Other"`
}

type aliasRemoveCmd struct {
	Merchant string `arg:"" help:"Raw merchant token from the message."`
}

type aliasRenameCmd struct {
	From     string `arg:"" help:"Current display name."`
	To       string `arg:"" help:"New display name."`
	Category string `help:"Category for the group; empty keeps each member's current one."`
}

type excludeCmd struct {
	Merchant string `arg:"" help:"Display merchant name."`
}

type insightsCmd struct {
	Period string `default:"This Month" help:"Named period to analyze."`
	APIKey string `name:"api-key" env:"GEMINI_API_KEY" help:"Gemini API key."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("expensectl"),
		kong.Description("Extract, organize and analyze expenses from bank messages."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// newService builds the pipeline against the chosen store backend.
func newService(ctx context.Context, g *globals) (*service.ExpenseService, func(), error) {
	cleanup := func() {}

	var txns store.TransactionStore
	var kv store.KVStore
	if g.Project != "" {
		client, err := firestore.NewClient(ctx, g.Project)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect firestore: %w", err)
		}
		cleanup = func() { client.Close() }
		fs := store.NewFirestoreStore(client)
		txns, kv = fs, fs
	} else {
		mem := store.NewMemoryStore()
		txns, kv = mem, mem
	}

	var source store.MessageSource
	if g.Messages != "" {
		msgs, err := loadMessages(g.Messages)
		if err != nil {
			return nil, cleanup, err
		}
		source = &store.SliceMessageSource{Messages: msgs}
	}

	svc, err := service.New(ctx, service.Config{
		Source:       source,
		Transactions: txns,
		Preferences:  kv,
		Broker:       events.NewBroker(),
	})
	if err != nil {
		return nil, cleanup, err
	}
	return svc, cleanup, nil
}

func runContext(g *globals) context.Context {
	log := logger.New()
	if g.Verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.WarnLevel)
	}
	return logger.WithContext(context.Background(), log)
}

type messageExport struct {
	Body       string    `json:"body"`
	Sender     string    `json:"sender"`
	ReceivedAt time.Time `json:"received_at"`
}

func loadMessages(path string) ([]model.Message, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	var export []messageExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}
	msgs := make([]model.Message, 0, len(export))
	for _, m := range export {
		msgs = append(msgs, model.Message{
			Body:       m.Body,
			BankHint:   m.Sender,
			ReceivedAt: m.ReceivedAt,
		})
	}
	return msgs, nil
}

func (c *syncCmd) Run(g *globals) error {
	ctx := runContext(g)
	svc, cleanup, err := newService(ctx, g)
	if err != nil {
		return err
	}
	defer cleanup()

	var result service.SyncResult
	if c.Full {
		result, err = svc.Rebuild(ctx)
	} else {
		result, err = svc.SyncMessages(ctx)
	}
	if err != nil {
		return err
	}
	if result.PermissionDenied {
		fmt.Println("message source access denied; no messages scanned")
		return nil
	}
	fmt.Printf("scanned %d messages, extracted %d, saved %d transactions\n",
		result.MessagesScanned, result.Extracted, result.Saved)
	return nil
}

func (c *dashboardCmd) Run(g *globals) error {
	ctx := runContext(g)
	svc, cleanup, err := newService(ctx, g)
	if err != nil {
		return err
	}
	defer cleanup()

	if c.Granularity != "" {
		granularity, err := parseGranularity(c.Granularity)
		if err != nil {
			return err
		}
		svc.SetGranularity(granularity)
	}

	d, err := svc.DashboardForPeriod(ctx, c.Period)
	if err != nil {
		return err
	}
	printDashboard(d)
	return nil
}

func (c *aliasSetCmd) Run(g *globals) error {
	ctx := runContext(g)
	svc, cleanup, err := newService(ctx, g)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.SetMerchantAlias(ctx, c.Merchant, c.Display, c.Category); err != nil {
		return err
	}
	fmt.Printf("%s -> %s (%s)\n", c.Merchant, c.Display, c.Category)
	return nil
}

func (c *aliasRemoveCmd) Run(g *globals) error {
	ctx := runContext(g)
	svc, cleanup, err := newService(ctx, g)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.RemoveMerchantAlias(ctx, c.Merchant); err != nil {
		return err
	}
	fmt.Printf("removed alias for %s\n", c.Merchant)
	return nil
}

func (c *aliasRenameCmd) Run(g *globals) error {
	ctx := runContext(g)
	svc, cleanup, err := newService(ctx, g)
	if err != nil {
		return err
	}
	defer cleanup()

	result := svc.RenameMerchantGroup(ctx, c.From, c.To, c.Category)
	fmt.Println(result)
	return result.FirstErr
}

func (c *excludeCmd) Run(g *globals) error {
	ctx := runContext(g)
	svc, cleanup, err := newService(ctx, g)
	if err != nil {
		return err
	}
	defer cleanup()

	included, err := svc.ToggleInclusion(ctx, c.Merchant)
	if err != nil {
		return err
	}
	if included {
		fmt.Printf("%s now counts toward totals\n", c.Merchant)
	} else {
		fmt.Printf("%s excluded from totals\n", c.Merchant)
	}
	return nil
}

func (c *insightsCmd) Run(g *globals) error {
	ctx := runContext(g)
	svc, cleanup, err := newService(ctx, g)
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := svc.DashboardForPeriod(ctx, c.Period)
	if err != nil {
		return err
	}

	gen := insights.NewGenerator(c.APIKey)
	results, err := gen.Generate(ctx, d.Period, d.TotalSpent.StringFixed(2), d.TopCategories, d.TopMerchants)
	if err != nil {
		return err
	}
	for _, in := range results {
		fmt.Printf("[%s] %s\n    %s\n", in.Severity, in.Title, in.Body)
	}
	return nil
}

func parseGranularity(s string) (model.Granularity, error) {
	switch s {
	case "daily":
		return model.GranularityDaily, nil
	case "weekly":
		return model.GranularityWeekly, nil
	case "monthly":
		return model.GranularityMonthly, nil
	case "quarterly":
		return model.GranularityQuarterly, nil
	case "yearly":
		return model.GranularityYearly, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q", s)
	}
}

func printDashboard(d service.Dashboard) {
	fmt.Printf("%s (%s to %s, %s buckets)\n", d.Period,
		d.Start.Format("2006-01-02"), d.End.Format("2006-01-02"), d.Granularity)
	fmt.Printf("spent %s  received %s  across %d transactions (%d auto-categorized)\n\n",
		d.TotalSpent.StringFixed(2), d.TotalReceived.StringFixed(2),
		d.TransactionCount, d.AutoCategorizedCount)

	if len(d.Series) > 0 {
		fmt.Println("series:")
		for _, b := range d.Series {
			fmt.Printf("  %-8s %10s  (%d)\n", b.Label, b.Amount.StringFixed(2), b.Count)
		}
		fmt.Println()
	}
	if len(d.TopCategories) > 0 {
		fmt.Println("top categories:")
		for _, c := range d.TopCategories {
			fmt.Printf("  %-20s %10s  %5.1f%%\n", c.Name, c.Amount.StringFixed(2), c.Percentage)
		}
		fmt.Println()
	}
	if len(d.TopMerchants) > 0 {
		fmt.Println("top merchants:")
		for _, m := range d.TopMerchants {
			fmt.Printf("  %-20s %10s  x%d\n", m.Name, m.Amount.StringFixed(2), m.Count)
		}
	}
}
