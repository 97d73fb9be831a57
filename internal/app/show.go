package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent participation samples.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show samples")
	}
	if closeStore != nil {
		defer closeStore()
	}

	samples, err := store.ListRecentParticipationSamples(ctx, a.Config.Beacon.Network, opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tNetwork\tEpoch\tCompleted%\tCurrent%")

	for _, sample := range samples {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\t%s\n",
			sample.TakenAt.UTC().Format(time.RFC3339),
			sample.Network,
			sample.Epoch,
			sample.PreviousRate.Mul(hundred).StringFixed(2),
			sample.CurrentRate.Mul(hundred).StringFixed(2),
		)
	}

	writer.Flush()
	return nil
}
