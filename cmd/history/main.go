package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"itmScreener/internal/adapters/logger"
	"itmScreener/internal/adapters/sqlite"
	"itmScreener/internal/domain"
)

func main() {
	dbPath := flag.String("db", "./data/screener.db", "run history database")
	symbol := flag.String("symbol", "SPY", "ticker to report on")
	limit := flag.Int("limit", 20, "number of recent runs")
	id := flag.String("id", "", "show the ranked contracts of one run")
	flag.Parse()

	ctx := context.Background()
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: *dbPath, Logger: logger.NewSlogLogger(logger.LevelWarn, logger.FormatText)})
	if err != nil {
		log.Fatalf("Error opening run history: %v", err)
	}
	defer repo.Close()

	if *id != "" {
		run, err := repo.FindByID(ctx, *id)
		if err != nil {
			log.Fatalf("Error loading run %s: %v", *id, err)
		}
		if run == nil {
			log.Fatalf("Run %s not found", *id)
		}
		printRun(run)
		return
	}

	runs, err := repo.FindRecentBySymbol(ctx, strings.ToUpper(*symbol), *limit)
	if err != nil {
		log.Fatalf("Error loading runs: %v", err)
	}
	if len(runs) == 0 {
		log.Println("No runs recorded yet. Run the screener first.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Started\tOutcome\tSignal\tPrice\tMFI\tExpiration\tSuggested\tAlert\tRun ID")
	for _, run := range runs {
		sig, price, mfi := "-", "-", "-"
		if run.Signal != nil {
			sig = string(run.Signal.Kind)
			price = domain.Money(run.Signal.Snapshot.Price)
			mfi = domain.Fixed(run.Signal.Snapshot.MFI, 2)
		}
		suggested := "-"
		if run.Suggested != nil {
			suggested = run.Suggested.Symbol
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04"), run.Outcome, sig, price, mfi,
			orDash(run.Expiration), suggested, run.AlertSent, run.ID)
	}
	w.Flush()

	fmt.Println("\n## Outcome Summary")
	printOutcomes(runs)
}

func printRun(run *domain.RunRecord) {
	fmt.Printf("Run %s (%s) %s\n", run.ID, run.Symbol, run.Outcome)
	if run.Error != "" {
		fmt.Printf("Error: %s\n", run.Error)
	}
	if len(run.Ranked) == 0 {
		fmt.Println("No ranked contracts.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Contract\tStrike\tLast Price\tVolume\tLiquidity\t% ITM")
	for _, c := range run.Ranked {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\t%s\n", c.Symbol, domain.Money(c.Strike), domain.Money(c.LastPrice),
			c.Volume, domain.Fixed(c.Liquidity, 2), domain.Fixed(c.PercentITM, 2))
	}
	w.Flush()
}

// printOutcomes counts runs per outcome, most frequent first.
func printOutcomes(runs []*domain.RunRecord) {
	counts := make(map[domain.RunOutcome]int)
	alerts := 0
	for _, run := range runs {
		counts[run.Outcome]++
		if run.AlertSent {
			alerts++
		}
	}
	outcomes := make([]domain.RunOutcome, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool {
		if counts[outcomes[i]] != counts[outcomes[j]] {
			return counts[outcomes[i]] > counts[outcomes[j]]
		}
		return outcomes[i] < outcomes[j]
	})
	for _, o := range outcomes {
		fmt.Printf("%-18s %d\n", o, counts[o])
	}
	fmt.Printf("%-18s %d\n", "alerts sent", alerts)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
