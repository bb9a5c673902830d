package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sevakendra/mel/internal/config"
	"github.com/sevakendra/mel/internal/export"
	"github.com/sevakendra/mel/internal/model"
)

// requireSQLiteStore fails one-shot commands that would read a fresh, empty
// memory store.
func requireSQLiteStore(cfg config.Config, command string) error {
	if cfg.Store == config.StoreMemory {
		return fmt.Errorf("%s reads stored rentals and needs the %q store; the %q store only lives inside a running server",
			command, config.StoreSQLite, config.StoreMemory)
	}
	return nil
}

// overdue prints the rentals overdue on -as-of (default today in the
// configured zone).
func overdue(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("overdue", flag.ContinueOnError)
	asOf := fs.String("as-of", "", "date as YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireSQLiteStore(cfg, "overdue"); err != nil {
		return err
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	date := a.ledger.Today()
	if *asOf != "" {
		if date, err = model.ParseDate(*asOf); err != nil {
			return fmt.Errorf("-as-of: %w", err)
		}
	}

	rentals, err := a.ledger.Overdue(context.Background(), date)
	if err != nil {
		return err
	}
	return writeOverdue(os.Stdout, rentals, date)
}

func writeOverdue(w io.Writer, rentals []model.Rental, asOf model.Date) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATIENT\tMOBILE\tEQUIPMENT\tDUE\tDAYS LATE")
	for i := range rentals {
		r := &rentals[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.PatientName, r.MobileNumber, r.EquipmentName, r.ReturnDate, r.DaysLate(asOf))
	}
	return tw.Flush()
}

// exportRentals writes rentals as CSV to -o (default stdout).
func exportRentals(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "", "output file")
	status := fs.String("status", "", "rented or returned")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireSQLiteStore(cfg, "export"); err != nil {
		return err
	}

	filter := model.RentalFilter{Status: model.RentalStatus(*status)}
	if *status != "" && !filter.Status.Valid() {
		return fmt.Errorf("-status must be %q or %q", model.RentalStatusRented, model.RentalStatusReturned)
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rentals, err := a.ledger.Rentals(context.Background(), filter)
	if err != nil {
		return err
	}

	if *out == "" {
		return export.WriteRentals(os.Stdout, rentals)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", *out, err)
	}
	if err := export.WriteRentals(f, rentals); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
