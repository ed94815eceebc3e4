package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"PriceScout/internal/app"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	task := flag.String("task", "", "Task to run: scan, scan-all, sweep, sweep-loop, or gen-config")
	competitor := flag.String("competitor", "", "Competitor id for scan and gen-config")
	tenant := flag.String("tenant", "", "Tenant id for scan-all")
	skipDiscovery := flag.Bool("skip-discovery", false, "Skip stale matches instead of rediscovering them")
	flag.Parse()

	application := app.New()
	defer application.Repo.Close()

	log.Printf("Running task: %s", *task)

	switch *task {
	case "scan":
		application.RunScan(*competitor, *skipDiscovery)

	case "scan-all":
		application.RunScanAll(*tenant, *skipDiscovery)

	case "sweep":
		application.RunSweep()

	case "sweep-loop":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		application.RunSweepLoop(ctx)

	case "gen-config":
		application.RunGenConfig(*competitor)

	default:
		log.Fatalf("Unknown task: %q. Use scan, scan-all, sweep, sweep-loop, or gen-config.", *task)
	}
}
