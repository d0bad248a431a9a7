package app

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/specialistvlad/equagrid/internal/config"
	"github.com/specialistvlad/equagrid/internal/engine"
	"github.com/specialistvlad/equagrid/internal/executor"
	"github.com/specialistvlad/equagrid/internal/seriesid"
)

// writeOutput opens the configured destination and hands it to write.
func (a *App) writeOutput(write func(w *csvWriter) error) (err error) {
	out := a.outW
	if path := a.config.OutputPath; path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close output file: %w", cerr)
			}
		}()
		out = f
	}

	w := &csvWriter{w: csv.NewWriter(out)}
	if err := write(w); err != nil {
		return err
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// csvWriter renders results as CSV, one row per timestep.
type csvWriter struct {
	w *csv.Writer
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// date renders the time of timestep t: a plain date for whole-day steps
// from midnight, RFC 3339 otherwise.
func date(ds *engine.Dataset, t int) string {
	at := ds.Start().Add(time.Duration(t) * ds.Step())
	if ds.Step()%(24*time.Hour) == 0 && ds.Start().Equal(ds.Start().Truncate(24*time.Hour)) {
		return at.Format(config.DateLayout)
	}
	return at.Format(time.RFC3339)
}

func seriesHeader(prefix []string, addrs []*seriesid.Address) []string {
	header := append([]string(nil), prefix...)
	for _, addr := range addrs {
		header = append(header, addr.String())
	}
	return header
}

func (c *csvWriter) run(ds *engine.Dataset, addrs []*seriesid.Address, values [][]float64) error {
	if err := c.w.Write(seriesHeader([]string{"timestep", "date"}, addrs)); err != nil {
		return err
	}
	for t := 0; t < ds.Timesteps(); t++ {
		row := []string{strconv.Itoa(t), date(ds, t)}
		for _, s := range values {
			row = append(row, formatValue(s[t]))
		}
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// ensemble writes the series of every completed member.
func (c *csvWriter) ensemble(ds *engine.Dataset, addrs []*seriesid.Address, members []executor.Member) error {
	if err := c.w.Write(seriesHeader([]string{"member", "timestep", "date"}, addrs)); err != nil {
		return err
	}
	for _, m := range members {
		if m.Err != nil || len(m.Series) != len(addrs) {
			continue
		}
		for t := 0; t < ds.Timesteps(); t++ {
			row := []string{strconv.Itoa(m.Index), strconv.Itoa(t), date(ds, t)}
			for _, s := range m.Series {
				row = append(row, formatValue(s[t]))
			}
			if err := c.w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// summary writes one row per timestep and series with the member statistics.
func (c *csvWriter) summary(ds *engine.Dataset, addrs []*seriesid.Address, sums []executor.Summary) error {
	header := []string{"timestep", "date", "series", "members", "mean", "stddev", "min", "max"}
	if err := c.w.Write(header); err != nil {
		return err
	}
	for t := 0; t < ds.Timesteps(); t++ {
		for s, sum := range sums {
			if sum.Members == 0 {
				continue
			}
			row := []string{
				strconv.Itoa(t), date(ds, t), addrs[s].String(), strconv.Itoa(sum.Members),
				formatValue(sum.Mean[t]), formatValue(sum.StdDev[t]),
				formatValue(sum.Min[t]), formatValue(sum.Max[t]),
			}
			if err := c.w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}
