// Command spendwise-report renders a user's monthly expense summary for a
// year as a PNG bar chart.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"spendwise/internal/charts"
	"spendwise/internal/config"
	applog "spendwise/internal/log"
	"spendwise/internal/rates"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentCharts})
	applog.SetDefault(logger)

	userID := flag.Int64("user", 0, "user id to report on")
	year := flag.Int("year", time.Now().Year(), "calendar year")
	out := flag.String("out", "monthly-summary.png", "output PNG path")
	flag.Parse()

	if *userID == 0 {
		logger.Error("missing required -user flag")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	user, err := repo.GetUser(ctx, *userID)
	if err != nil {
		logger.Error("failed to load user", applog.FieldError, err, applog.FieldUserID, *userID)
		os.Exit(1)
	}

	source := rates.NewHTTPSource(cfg.RatesAPIURL, cfg.RatesTimeout)
	converter := rates.NewConverter(rates.NewCache(source, cfg.RatesCacheTTL))
	expenses := services.NewExpenseService(repo, repo, repo, converter, nil)

	summary, err := expenses.MonthlySummary(ctx, user, *year)
	if err != nil {
		logger.Error("failed to build monthly summary", applog.FieldError, err)
		os.Exit(1)
	}
	if len(summary) == 0 {
		logger.Info("no expenses recorded for year, nothing to render",
			applog.FieldYear, *year)
		return
	}

	png, err := charts.NewRenderer().MonthlySummary(summary, user.BaseCurrency)
	if err != nil {
		logger.Error("failed to render chart", applog.FieldError, err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, png, 0644); err != nil {
		logger.Error("failed to write chart file", applog.FieldError, err, "path", *out)
		os.Exit(1)
	}

	logger.Info("monthly summary chart written",
		applog.FieldYear, *year,
		"months", len(summary),
		"path", *out)
}
