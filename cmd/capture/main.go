// Command capture saves one raw week of upstream availability for a group,
// which is handy for building test fixtures:
//
//	capture -group 3581 -date 2025-12-16 -out api_response.json -pretty
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/communico"
	"github.com/faylib/equipment-calendar/internal/config"
)

func main() {
	group := flag.String("group", "3581", "asset group id")
	date := flag.String("date", time.Now().Format("2006-01-02"), "week start date (YYYY-MM-DD)")
	out := flag.String("out", "api_response.json", "output file")
	pretty := flag.Bool("pretty", false, "indent the JSON body")
	flag.Parse()

	if err := run(*group, *date, *out, *pretty); err != nil {
		fmt.Fprintln(os.Stderr, "capture:", err)
		os.Exit(1)
	}
}

func run(group, date, out string, pretty bool) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.LogLevel, "console", "capture")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client := communico.NewClient(cfg.Communico, logger)
	resp, err := client.GroupAvailability(context.Background(), group, date)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("%w: %d", communico.ErrUpstreamStatus, resp.StatusCode)
	}

	body := resp.Body
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			return fmt.Errorf("indent response: %w", err)
		}
		body = buf.Bytes()
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("saved availability", zap.String("group", group), zap.String("date", date), zap.String("file", out), zap.Int("bytes", len(body)))
	return nil
}
