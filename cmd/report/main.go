// Command report writes the printable summary report and a spreadsheet of the
// loan book.
//
//	report <role> <username> [-date YYYY[-MM[-DD]]] [-out dir]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bigongold/loan-manager/internal/app"
	"github.com/bigongold/loan-manager/internal/config"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/logger"
	"github.com/bigongold/loan-manager/internal/session"
	"github.com/bigongold/loan-manager/pkg/utils"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "report:", err)
		os.Exit(1)
	}
}

// splitArgs separates the leading positional session arguments from flags.
func splitArgs(args []string) (positional, flags []string) {
	for i, arg := range args {
		if len(arg) > 0 && arg[0] == '-' {
			return args[:i], args[i:]
		}
	}
	return args, nil
}

func run(args []string) error {
	positional, rest := splitArgs(args)
	actor, err := session.FromArgs(positional)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	date := fs.String("date", "", "restrict the summary to applications dated YYYY, YYYY-MM or YYYY-MM-DD")
	out := fs.String("out", cfg.Export.Dir, "output directory")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	if err := logger.Setup(logger.Options{Level: cfg.Logging.Level, Format: "text", File: cfg.Logging.File}); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	stamp := utils.FormatDate(a.Clock.Now())
	reportPath := filepath.Join(*out, fmt.Sprintf("report-%s.pdf", stamp))
	if err := a.Reports.GenerateReport(ctx, *date, reportPath); err != nil {
		return err
	}

	exportPath := filepath.Join(*out, fmt.Sprintf("loans-%s.xlsx", stamp))
	n, err := a.Reports.ExportLoans(ctx, domain.AllLoans(), exportPath)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user":   actor.Username,
		"role":   actor.Role,
		"report": reportPath,
		"export": exportPath,
		"loans":  n,
	}).Info("report written")
	return nil
}
