// Command duel-cli plays seeded games with the computer driving both seats
// and prints a result table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/config"
	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
)

var (
	games      = flag.Int("games", 10, "number of games to play")
	seed       = flag.Int64("seed", 1, "base seed; game i uses seed+i (0 seeds from the clock)")
	difficulty = flag.String("difficulty", "medium", "opponent difficulty: easy, medium or hard")
	elements   = flag.String("elements", "fire,water", "comma-separated elements for the autopiloted seat")
	maxTurns   = flag.Int("max-turns", 80, "turn cap after which a game counts as stalled")
	showLog    = flag.Bool("log", false, "print every game's log")
	logLevel   = flag.String("log-level", "warn", "engine log level")
)

func main() {
	flag.Parse()

	logger, err := config.NewLogger(config.LoggingConfig{Level: *logLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts, err := parseOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cat, err := catalog.Default()
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := simulate(ctx, logger, cat, opts)
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}
	if err := report.write(os.Stdout, opts.showLog); err != nil {
		logger.Fatal("failed to write report", zap.Error(err))
	}
}

func parseOptions() (options, error) {
	d, err := ai.ParseDifficulty(*difficulty)
	if err != nil {
		return options{}, err
	}
	var chosen []mana.Element
	for _, name := range strings.Split(*elements, ",") {
		e, err := mana.ParseElement(name)
		if err != nil {
			return options{}, err
		}
		chosen = append(chosen, e)
	}
	if *games < 1 {
		return options{}, fmt.Errorf("-games must be at least 1")
	}
	if *maxTurns < 1 {
		return options{}, fmt.Errorf("-max-turns must be at least 1")
	}
	return options{
		games:      *games,
		seed:       *seed,
		difficulty: d,
		elements:   chosen,
		maxTurns:   *maxTurns,
		showLog:    *showLog,
	}, nil
}
