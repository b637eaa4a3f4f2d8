// Package main is the CLI entry point for sleepshieldd.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/sleepshield/internal/api"
	"github.com/eliteGoblin/sleepshield/internal/blocklist"
	"github.com/eliteGoblin/sleepshield/internal/config"
	"github.com/eliteGoblin/sleepshield/internal/domain"
	"github.com/eliteGoblin/sleepshield/internal/ledger"
	"github.com/eliteGoblin/sleepshield/internal/reset"
	"github.com/eliteGoblin/sleepshield/internal/selector"
	"github.com/eliteGoblin/sleepshield/internal/store"
	"github.com/eliteGoblin/sleepshield/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sleepshieldd",
	Short: "Nightly focus daemon - blocks distracting sites during sleep hours",
	Long: `sleepshieldd enforces a nightly block window over distracting websites.
The browser extension asks it whether each navigation should be blocked,
fetches friction content for the block screen, and records overrides.
At wake time the daemon resets the night and updates the streak.`,
	Version: Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon (HTTP API and nightly reset scheduler)",
	Long: `Starts the localhost HTTP API the browser extension talks to and the
background scheduler that performs the nightly reset at wake time.`,
	RunE: runServe,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current protection status",
	Long:  `Queries the running daemon and shows the schedule, streak and tonight's numbers.`,
	RunE:  runStatus,
}

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Ask the daemon whether a URL would be blocked right now",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var overrideCmd = &cobra.Command{
	Use:   "override <domain>",
	Short: "Grant a temporary bypass for one domain",
	Long: `Records an override so the domain passes through for the given number
of minutes. --until-wake keeps it open until the next wake time, which
resets the streak immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runOverride,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the schedule and enable protection",
	Long: `Saves the wake time and block window and marks setup as complete.
When --block-start is omitted it is derived as wake time minus the
sleep target minus the wind-down buffer. The default blocklist catalog
is installed unless the daemon was already configured with a custom one.`,
	RunE: runSetup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	overrideMinutes   int
	overrideUntilWake bool
	overrideReason    string
	setupWake         string
	setupBlockStart   string
	setupSleepHours   float64
	setupBuffer       int
	jsonOutput        bool
)

func init() {
	overrideCmd.Flags().IntVar(&overrideMinutes, "minutes", 15, "Override duration in minutes")
	overrideCmd.Flags().BoolVar(&overrideUntilWake, "until-wake", false, "Keep the override until the next wake time (breaks the streak)")
	overrideCmd.Flags().StringVar(&overrideReason, "reason", "", "Why the bypass is needed")
	setupCmd.Flags().StringVar(&setupWake, "wake", "06:00", "Wake time (HH:MM)")
	setupCmd.Flags().StringVar(&setupBlockStart, "block-start", "", "Block window start (HH:MM), derived when omitted")
	setupCmd.Flags().Float64Var(&setupSleepHours, "sleep-hours", 7.5, "Sleep target in hours")
	setupCmd.Flags().IntVar(&setupBuffer, "buffer", 30, "Wind-down buffer in minutes before sleep")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(overrideCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := createLogger(cfg.LogPath)
	defer func() { _ = logger.Sync() }()

	stateStore, err := store.New(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() { _ = stateStore.Close() }()

	night := ledger.New(stateStore, logger)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	picker := selector.New(night, rng, logger)
	clock := domain.ClockFunc(time.Now)
	gatekeeper := usecase.NewGatekeeper(stateStore, night, blocklist.NewMatcher(), picker, clock, logger)

	scheduler := reset.NewScheduler(reset.Config{
		TickInterval: cfg.TickInterval,
		Tolerance:    time.Duration(cfg.ResetToleranceMinutes) * time.Minute,
	}, stateStore, night, clock, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reset scheduler stopped", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(gatekeeper, logger).Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("sleepshieldd serving",
		zap.String("addr", cfg.ListenAddr),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("store_path", cfg.StorePath))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	var report domain.StatusReport
	if err := apiGet("/v1/status", &report); err != nil {
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'sleepshieldd serve' to start the daemon.")
		return nil
	}

	fmt.Println()
	if !report.SetupComplete {
		color.Yellow("Setup not complete")
		fmt.Println("\nRun 'sleepshieldd setup --wake 06:00' to enable protection.")
		return nil
	}

	if report.WindowActive {
		color.Green("Block window ACTIVE (%s zone)", report.Zone)
	} else {
		color.Cyan("Block window inactive")
	}

	table := uitable.New()
	table.AddRow("Wake time:", report.WakeTime)
	table.AddRow("Block start:", report.BlockStartTime)
	table.AddRow("Streak:", fmt.Sprintf("%d nights", report.Streak))
	table.AddRow("Blocked tonight:", fmt.Sprintf("%d attempts", report.BlockedTonight))
	table.AddRow("Active overrides:", fmt.Sprintf("%d", report.ActiveOverride))
	if report.LastResetDate != "" {
		table.AddRow("Last reset:", report.LastResetDate)
	}
	fmt.Println(table)

	if len(report.Categories) > 0 {
		fmt.Println("\nBlocked categories:")
		for _, name := range report.Categories {
			fmt.Printf("  - %s\n", name)
		}
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	var decision domain.Decision
	err := apiPost("/v1/navigation", api.NavigationRequest{URL: args[0]}, &decision)
	if err != nil {
		return err
	}

	if decision.Blocked {
		color.Red("BLOCKED  %s (%s)", decision.Domain, decision.Category)
	} else {
		color.Green("ALLOWED  %s", args[0])
	}
	return nil
}

func runOverride(cmd *cobra.Command, args []string) error {
	minutes := overrideMinutes
	if overrideUntilWake {
		minutes = domain.UntilWake
	}

	var record domain.OverrideRecord
	err := apiPost("/v1/overrides", api.OverrideRequest{
		Domain:          args[0],
		Reason:          overrideReason,
		DurationMinutes: minutes,
	}, &record)
	if err != nil {
		return err
	}

	if overrideUntilWake {
		color.Yellow("Override recorded for %s until wake time. Streak reset.", record.Domain)
	} else {
		fmt.Printf("Override recorded for %s, expires %s\n",
			record.Domain, record.ExpiresAt.Local().Format("15:04"))
	}
	return nil
}

func runSetup(cmd *cobra.Command, args []string) error {
	err := apiPut("/v1/config", domain.Setup{
		WakeTime:       setupWake,
		BlockStartTime: setupBlockStart,
		SleepHours:     setupSleepHours,
		BufferMinutes:  setupBuffer,
	})
	if err != nil {
		return err
	}

	color.Green("Setup saved. Protection is enabled.")

	var report domain.StatusReport
	if err := apiGet("/v1/status", &report); err == nil {
		fmt.Printf("Block window: %s to %s\n", report.BlockStartTime, report.WakeTime)
		if report.WindowActive {
			color.Yellow("The window is active right now; blocking starts immediately.")
		}
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("sleepshieldd %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// daemonAddr resolves the API address the CLI subcommands talk to.
func daemonAddr() string {
	cfg, err := config.Load()
	if err != nil {
		return "127.0.0.1:8377"
	}
	return cfg.ListenAddr
}

func apiGet(path string, out any) error {
	resp, err := http.Get("http://" + daemonAddr() + path)
	if err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, out)
}

func apiPost(path string, body, out any) error {
	return apiSend(http.MethodPost, path, body, out)
}

func apiPut(path string, body any) error {
	return apiSend(http.MethodPut, path, body, nil)
}

func apiSend(method, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, "http://"+daemonAddr()+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func createLogger(logPath string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if logPath != "" {
		zapCfg.OutputPaths = []string{logPath}
		zapCfg.ErrorOutputPaths = []string{logPath}
	}
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
