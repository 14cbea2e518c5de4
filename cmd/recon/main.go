// Command recon runs the reconciliation passes standalone, one subcommand per
// pass. Each run prints its summary and exits 0 on completion, non-zero on a
// processing failure. Destructive passes ask for confirmation unless -yes is
// given; -export writes the current findings to an Excel workbook instead of
// mutating anything.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kmorisaki/billing-recon/internal/audit"
	"github.com/kmorisaki/billing-recon/internal/config"
	"github.com/kmorisaki/billing-recon/internal/db"
	"github.com/kmorisaki/billing-recon/internal/excel"
	"github.com/kmorisaki/billing-recon/internal/logger"
	"github.com/kmorisaki/billing-recon/internal/repository"
	"github.com/kmorisaki/billing-recon/internal/service"
)

const usage = `usage: recon <command> [flags]

commands:
  match    match expense items against observed payment records
  repair   re-link expense items whose contract was deleted
  dedup    collapse duplicate expense items
  corners  repoint sub-production expense items to the parent production
  audit    report cast affiliation vs contract partner mismatches
  export   write current findings to an Excel workbook

common flags:
  -yes     skip the confirmation prompt
  -month   limit match to one YYYY-MM expected payment month
  -limit   number of sample lines per report section
  -auto    audit only: auto-fix groups with a single shared affiliation
  -export  audit only: also write findings to the given .xlsx path
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	yes := flags.Bool("yes", false, "skip confirmation prompt")
	month := flags.String("month", "", "limit match to YYYY-MM")
	auto := flags.Bool("auto", false, "apply auto-fixable audit resolutions")
	exportPath := flags.String("export", "", "write findings workbook to path")
	limit := flags.Int("limit", 0, "sample lines per report section")
	_ = flags.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *limit > 0 {
		cfg.Report.SampleLimit = *limit
	}
	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect database")
		os.Exit(1)
	}
	defer func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	recon := service.NewReconService(repository.NewReconRepository(database), cfg, log)
	ctx := context.Background()

	switch command {
	case "match":
		runPass(func() error {
			summary, err := recon.RunMatch(ctx, service.MatchInput{Month: *month})
			if err != nil {
				return err
			}
			fmt.Print(summary.Render())
			return nil
		})

	case "repair":
		runPass(func() error {
			summary, err := recon.RunRepair(ctx)
			if err != nil {
				return err
			}
			fmt.Print(summary.Render())
			return nil
		})

	case "dedup":
		if !*yes && !confirm("This removes duplicate expense items permanently. Continue?") {
			fmt.Println("cancelled")
			return
		}
		runPass(func() error {
			summary, err := recon.RunDedup(ctx)
			if err != nil {
				return err
			}
			fmt.Print(summary.Render())
			return nil
		})

	case "corners":
		if !*yes && !confirm("This repoints sub-production expense items to their parent. Continue?") {
			fmt.Println("cancelled")
			return
		}
		runPass(func() error {
			summary, err := recon.RunCorners(ctx)
			if err != nil {
				return err
			}
			fmt.Print(summary.Render())
			return nil
		})

	case "audit":
		runPass(func() error {
			return runAudit(ctx, recon, *auto, *yes, *exportPath)
		})

	case "export":
		if *exportPath == "" {
			fmt.Fprintln(os.Stderr, "export requires -export <path>")
			os.Exit(2)
		}
		runPass(func() error {
			return writeFindings(ctx, recon, *exportPath)
		})

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runPass(fn func() error) {
	if err := fn(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runAudit(ctx context.Context, recon *service.ReconService, auto, yes bool, exportPath string) error {
	auditReport, err := recon.RunAudit(ctx)
	if err != nil {
		return err
	}
	fmt.Print(auditReport.Summary.Render())

	for _, inc := range auditReport.Inconsistencies {
		fmt.Printf("\ncontract #%d %q (%s)\n", inc.ContractID, inc.ItemName, inc.ProductionName)
		fmt.Printf("  contract partner: %s (ID %d)\n", inc.ContractPartnerName, inc.ContractPartnerID)
		fmt.Printf("  period: %s - %s\n", inc.StartDate, inc.EndDate)
		for _, cast := range inc.Mismatched {
			fmt.Printf("  - %s, affiliated with %s", cast.CastName, orNone(cast.CastPartnerName))
			if cast.Role != "" {
				fmt.Printf(" (%s)", cast.Role)
			}
			fmt.Println()
		}
		if !inc.AutoFixable() {
			fmt.Println("  divergent affiliations: resolve manually via strategy 2 or 3")
		}
	}

	if exportPath != "" {
		if err := writeFindings(ctx, recon, exportPath); err != nil {
			return err
		}
	}

	if !auto {
		return nil
	}
	if !yes && !confirm(fmt.Sprintf("Auto-fix %d eligible contract(s)?", countAutoFixable(auditReport.Inconsistencies))) {
		fmt.Println("cancelled")
		return nil
	}
	summary, err := recon.AutoFixAudit(ctx)
	if err != nil {
		return err
	}
	fmt.Print(summary.Render())
	return nil
}

func writeFindings(ctx context.Context, recon *service.ReconService, path string) error {
	findings, err := recon.CollectFindings(ctx)
	if err != nil {
		return err
	}
	content, err := excel.NewGenerator().Generate(findings)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return err
	}
	fmt.Printf("findings written to %s\n", path)
	return nil
}

func countAutoFixable(inconsistencies []audit.Inconsistency) int {
	count := 0
	for _, inc := range inconsistencies {
		if inc.AutoFixable() {
			count++
		}
	}
	return count
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func orNone(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(no partner)"
	}
	return name
}
