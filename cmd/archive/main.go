// Command archive builds the trajectory archive of one task on demand.
//
//	archive -agent 3 -task 42 [-config config.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jengzang/dispatch-backend-go/internal/apperr"
	"github.com/jengzang/dispatch-backend-go/internal/config"
	"github.com/jengzang/dispatch-backend-go/internal/database"
	"github.com/jengzang/dispatch-backend-go/internal/logger"
	"github.com/jengzang/dispatch-backend-go/internal/models"
	"github.com/jengzang/dispatch-backend-go/internal/repository"
	"github.com/jengzang/dispatch-backend-go/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	agentID := flag.Int64("agent", 0, "agent id")
	taskID := flag.Int64("task", 0, "task id")
	flag.Parse()

	if *agentID <= 0 || *taskID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: archive -agent <id> -task <id> [-config path]")
		os.Exit(2)
	}

	if err := run(*configPath, *agentID, *taskID, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string, agentID, taskID int64, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// keep stdout for the report
	cfg.Logger.Level = "warn"
	log, _, err := logger.Build(cfg.Logger)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, database.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.NewMigrationManager(db, log).RunMigrations(ctx); err != nil {
		return err
	}

	archives := service.NewArchiveService(db, repository.NewRepositories(db), log)
	outcome, err := archives.TriggerArchive(ctx, agentID, taskID)
	if err != nil {
		if appErr, ok := apperr.As(err); ok {
			fmt.Fprintf(out, "%s: %s\n", appErr.Code, appErr.Message)
			return nil
		}
		return err
	}

	return report(out, outcome)
}

func report(out io.Writer, outcome *service.ArchiveOutcome) error {
	switch outcome.Status {
	case service.ArchiveNoLocations:
		_, err := fmt.Fprintln(out, "no locations recorded for this task")
		return err
	case service.ArchiveAlreadyExists:
		fmt.Fprintln(out, "archive already exists")
	case service.ArchiveCreated:
		fmt.Fprintln(out, "archive created")
	}

	s := models.NewArchiveSummary(outcome.Archive)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "task\t%d\n", s.TaskID)
	fmt.Fprintf(w, "agent\t%d\n", s.AgentID)
	fmt.Fprintf(w, "points\t%d\n", s.PointCount)
	fmt.Fprintf(w, "path length\t%.1f m\n", s.PathLength)
	if s.AvgSpeed != nil {
		fmt.Fprintf(w, "avg speed\t%.2f m/s\n", *s.AvgSpeed)
	} else {
		fmt.Fprintf(w, "avg speed\t-\n")
	}
	fmt.Fprintf(w, "start\t%s\n", s.StartTime.Format(time.RFC3339))
	fmt.Fprintf(w, "end\t%s\n", s.EndTime.Format(time.RFC3339))
	fmt.Fprintf(w, "duration\t%s\n", time.Duration(s.DurationSeconds*float64(time.Second)))
	return w.Flush()
}
