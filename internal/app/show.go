package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints recent samples.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	samples, err := store.ListRecentSamples(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	total, err := store.CountSamples(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tBTC/USD\tUSDT/BOB\tBTC/BOB")

	for _, s := range samples {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			s.Timestamp.UTC().Format(time.RFC3339),
			formatDecimal(s.BTCUSD, 2),
			formatDecimal(s.USDTBOB, 2),
			formatDecimal(s.BTCBOB, 2),
		)
	}

	writer.Flush()
	fmt.Fprintf(os.Stdout, "\n%d of %d stored samples\n", len(samples), total)
	return nil
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
