// Package main is the CLI entry point for blockerd.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/blockerd/internal/config"
	"github.com/eliteGoblin/focusd/blockerd/internal/daemon"
	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
	"github.com/eliteGoblin/focusd/blockerd/internal/infra"
	"github.com/eliteGoblin/focusd/blockerd/internal/strategy"
	"github.com/eliteGoblin/focusd/blockerd/internal/usecase"
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
	Use:   "blockerd",
	Short: "Profile-based blocking sessions",
	Long: `blockerd manages blocking profiles and runs focus sessions against them.
A session is started under a profile's strategy (manual, token-gated, timer,
pause) and enforced until the strategy's stop conditions are met. Scheduled
profiles are driven by a background daemon even when the CLI is not running.`,
	Version: Version,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage blocking profiles",
}

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a blocking profile",
	RunE:  runProfileCreate,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles in display order",
	RunE:  runProfileList,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <profile-id>",
	Short: "Delete a profile and its sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

var profileCloneCmd = &cobra.Command{
	Use:   "clone <profile-id>",
	Short: "Duplicate a profile's configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileClone,
}

var profileReorderCmd = &cobra.Command{
	Use:   "reorder <profile-id>...",
	Short: "Set profile display order",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProfileReorder,
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage a profile's unblock token whitelist",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <profile-id> <token-id>",
	Short: "Add an unblock token to the whitelist",
	Args:  cobra.ExactArgs(2),
	RunE:  runTagAdd,
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <profile-id> <entry-id>",
	Short: "Remove a whitelist entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runTagRemove,
}

var tagListCmd = &cobra.Command{
	Use:   "list <profile-id>",
	Short: "List whitelist entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagList,
}

var startCmd = &cobra.Command{
	Use:   "start <profile-id>",
	Short: "Start a blocking session",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop (or pause) the active session",
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show active session and daemon status",
	RunE:  runStatus,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions <profile-id>",
	Short: "Show session history for a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessions,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session from history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available blocking strategies",
	Run:   runStrategies,
}

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Automation entry points (no scan interaction)",
}

var intentStartCmd = &cobra.Command{
	Use:   "start <profile-name>",
	Short: "Start a profile by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runIntentStart,
}

var intentStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active session if its profile allows it",
	RunE:  runIntentStop,
}

var intentActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Report whether a session is running",
	RunE:  runIntentActive,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

// Hidden daemon command - the background scheduler process.
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE:   runDaemon,
}

var (
	configPath string

	createName         string
	createSelection    string
	createStrategy     string
	createBreakMinutes int
	createStrict       bool
	createAllowMode    bool
	createNoBackground bool
	createDomains      []string
	scheduleDays       string
	scheduleStart      string
	scheduleEnd        string

	tagName string
	tagURL  string

	startTag      string
	startForce    bool
	startDuration int

	stopTag string

	sessionsLimit  int
	intentDuration int
	jsonOutput     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	profileCreateCmd.Flags().StringVar(&createName, "name", "", "Profile name (required)")
	profileCreateCmd.Flags().StringVar(&createSelection, "selection", "", "Restriction selection blob (required)")
	profileCreateCmd.Flags().StringVar(&createStrategy, "strategy", "", "Blocking strategy id (default nfc)")
	profileCreateCmd.Flags().IntVar(&createBreakMinutes, "break-minutes", 0, "Pause window length for pause strategies")
	profileCreateCmd.Flags().BoolVar(&createStrict, "strict", false, "Enable strict mode")
	profileCreateCmd.Flags().BoolVar(&createAllowMode, "allow-mode", false, "Selection is an allow list")
	profileCreateCmd.Flags().BoolVar(&createNoBackground, "no-background-stops", false, "Refuse automation stops")
	profileCreateCmd.Flags().StringSliceVar(&createDomains, "domains", nil, "Web domains to block")
	profileCreateCmd.Flags().StringVar(&scheduleDays, "schedule-days", "", "Schedule days, e.g. mon,tue,wed")
	profileCreateCmd.Flags().StringVar(&scheduleStart, "schedule-start", "", "Schedule start, e.g. 09:00")
	profileCreateCmd.Flags().StringVar(&scheduleEnd, "schedule-end", "", "Schedule end, e.g. 17:00")
	_ = profileCreateCmd.MarkFlagRequired("name")
	_ = profileCreateCmd.MarkFlagRequired("selection")

	tagAddCmd.Flags().StringVar(&tagName, "name", "", "Display name for the token")
	tagAddCmd.Flags().StringVar(&tagURL, "url", "", "Token URL, if any")

	startCmd.Flags().StringVar(&startTag, "tag", "", "Token for scan-started strategies")
	startCmd.Flags().BoolVar(&startForce, "force", false, "Waive the same-token-to-stop rule")
	startCmd.Flags().IntVar(&startDuration, "duration", 0, "Timer duration in minutes")

	stopCmd.Flags().StringVar(&stopTag, "tag", "", "Token for scan-gated stops")

	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 0, "Maximum sessions to show")
	intentStartCmd.Flags().IntVar(&intentDuration, "duration", 0, "Timer duration in minutes")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	profileCmd.AddCommand(profileCreateCmd, profileListCmd, profileDeleteCmd, profileCloneCmd, profileReorderCmd)
	tagCmd.AddCommand(tagAddCmd, tagRemoveCmd, tagListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	intentCmd.AddCommand(intentStartCmd, intentStopCmd, intentActiveCmd)

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(intentCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
}

// app bundles everything the commands need, wired once per invocation.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *infra.EncryptedProfileStore
	snapshots *infra.FileSnapshotStore
	intervals *infra.FileIntervalScheduler
	registry  *strategy.Registry
	engine    *usecase.Engine
	profiles  *usecase.ProfileService
	whitelist *usecase.WhitelistManager
	intents   *usecase.IntentService
}

func newApp(scanner domain.Scanner) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	logger := createLogger(cfg)

	keyProvider := infra.NewFileKeyProvider(cfg.DataDir)
	key, err := keyProvider.EnsureKey()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare database key: %w", err)
	}
	store, err := infra.NewEncryptedProfileStore(cfg.DataDir, key)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}

	snapshots := infra.NewFileSnapshotStore(cfg.DataDir)
	intervals := infra.NewFileIntervalScheduler(cfg.DataDir)
	registry := strategy.NewRegistry()
	enforcer := infra.NewLogEnforcer(logger)

	engine := usecase.NewEngine(store, snapshots, enforcer, intervals, scanner, registry, logger)
	profiles := usecase.NewProfileService(store, snapshots, intervals, registry, logger)
	whitelist := usecase.NewWhitelistManager(store, snapshots, logger)
	intents := usecase.NewIntentService(engine, store, logger)

	// Startup reconciliation mirrors the foreground resume path: migrate
	// legacy tokens, republish snapshots, absorb background activity.
	if _, err := whitelist.MigrateLegacyTokens(); err != nil {
		logger.Warn("legacy token migration failed", zap.Error(err))
	}
	if err := profiles.PublishAll(); err != nil {
		logger.Warn("snapshot republish failed", zap.Error(err))
	}
	if _, err := engine.LoadActiveSession(); err != nil {
		logger.Warn("session reconciliation failed", zap.Error(err))
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		snapshots: snapshots,
		intervals: intervals,
		registry:  registry,
		engine:    engine,
		profiles:  profiles,
		whitelist: whitelist,
		intents:   intents,
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
	_ = a.logger.Sync()
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := parseScheduleFlags()
	if err != nil {
		return err
	}

	p := &domain.Profile{
		Name:                   createName,
		Selection:              domain.RestrictionSelection(createSelection),
		StrategyID:             createStrategy,
		Schedule:               sched,
		EnableStrictMode:       createStrict,
		EnableAllowMode:        createAllowMode,
		DisableBackgroundStops: createNoBackground,
		BreakMinutes:           createBreakMinutes,
		Domains:                createDomains,
		BlockWebDomains:        len(createDomains) > 0,
	}
	if err := a.profiles.Create(p); err != nil {
		return err
	}

	fmt.Printf("Created profile %s (%s)\n", p.Name, p.ID)
	return nil
}

func runProfileList(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	profiles, err := a.profiles.List()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles.")
		return nil
	}

	for _, p := range profiles {
		line := fmt.Sprintf("%s  %-20s strategy=%s", p.ID, p.Name, p.StrategyID)
		if p.Schedule.IsEnabled() {
			line += fmt.Sprintf("  schedule=%02d:%02d-%02d:%02d",
				p.Schedule.StartHour, p.Schedule.StartMinute,
				p.Schedule.EndHour, p.Schedule.EndMinute)
		}
		if len(p.Whitelist) > 0 {
			line += fmt.Sprintf("  whitelist=%d", len(p.Whitelist))
		}
		fmt.Println(line)
	}
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}
	if err := a.profiles.Delete(id); err != nil {
		return err
	}
	fmt.Println("Profile deleted.")
	return nil
}

func runProfileClone(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}
	dup, err := a.profiles.Clone(id)
	if err != nil {
		return err
	}
	fmt.Printf("Created profile %s (%s)\n", dup.Name, dup.ID)
	return nil
}

func runProfileReorder(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid profile id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	if err := a.profiles.Reorder(ids); err != nil {
		return err
	}
	fmt.Println("Order updated.")
	return nil
}

func runTagAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}
	tag, err := a.whitelist.AddTag(id, args[1], tagURL, tagName)
	if err != nil {
		return err
	}
	fmt.Printf("Added %q (%s)\n", tag.Name, tag.ID)
	return nil
}

func runTagRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	profileID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}
	entryID, err := uuid.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid entry id: %w", err)
	}
	if err := a.whitelist.RemoveTag(profileID, entryID); err != nil {
		return err
	}
	fmt.Println("Token removed.")
	return nil
}

func runTagList(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}
	tags, err := a.whitelist.ListTags(id)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		fmt.Println("Whitelist is empty.")
		return nil
	}
	for _, tag := range tags {
		fmt.Printf("%s  %-20s %s\n", tag.ID, tag.Name, tag.TagID)
	}
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := newApp(scannerForCLI(startTag))
	if err != nil {
		return err
	}
	defer a.close()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}

	res, err := a.engine.Start(id, usecase.StartOptions{
		Force:           startForce,
		DurationMinutes: startDuration,
	})
	if err != nil {
		return err
	}
	if res.AwaitingScan {
		fmt.Println("Waiting for a scan that never arrived.")
		return nil
	}
	fmt.Printf("Session %s started.\n", res.Session.ID)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := newApp(scannerForCLI(stopTag))
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.engine.Stop(stopTag)
	if err != nil {
		if domain.IsGatingError(err) || errors.Is(err, domain.ErrNoActiveSession) {
			fmt.Println(err.Error())
			return nil
		}
		return err
	}
	switch {
	case res.AwaitingScan:
		fmt.Println("Waiting for a scan that never arrived.")
	case res.Outcome == usecase.OutcomePaused:
		fmt.Println("Session paused. Stop again to end it.")
	default:
		fmt.Println("Session ended.")
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.engine.LoadActiveSession()
	if err != nil {
		return err
	}

	fmt.Println("======= blockerd status =======")
	if sess == nil {
		fmt.Println("No active session.")
	} else {
		p, err := a.profiles.Get(sess.ProfileID)
		name := sess.ProfileID.String()
		if err == nil {
			name = p.Name
		}
		fmt.Printf("Active session: %s\n", sess.ID)
		fmt.Printf("Profile:        %s\n", name)
		fmt.Printf("Started:        %s (%s ago)\n",
			sess.StartTime.Format(time.RFC3339),
			time.Since(sess.StartTime).Round(time.Second))
		if sess.Paused(time.Now()) {
			fmt.Printf("Paused until:   %s\n", sess.BreakEnd.Format(time.RFC3339))
		}
	}

	st, err := a.snapshots.Load()
	if err != nil {
		return err
	}
	pm := infra.NewProcessManager()
	if st.SchedulerPID != 0 && pm.IsRunning(st.SchedulerPID) {
		fmt.Printf("Scheduler:      running (pid %d)\n", st.SchedulerPID)
	} else {
		fmt.Println("Scheduler:      not running")
	}

	activities, err := a.intervals.Activities()
	if err == nil && len(activities) > 0 {
		fmt.Printf("Activities:     %s\n", strings.Join(activities, ", "))
	}
	fmt.Println("===============================")
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}
	limit := sessionsLimit
	if limit <= 0 {
		limit = a.cfg.SessionHistoryLimit
	}
	sessions, err := a.profiles.RecentSessions(id, limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}
	now := time.Now()
	for _, s := range sessions {
		state := "open"
		if s.EndTime != nil {
			state = "ended"
		}
		fmt.Printf("%s  %s  %-6s %s\n",
			s.ID, s.StartTime.Format(time.RFC3339), state,
			s.Duration(now).Round(time.Second))
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.profiles.DeleteSession(args[0]); err != nil {
		return err
	}
	fmt.Println("Session deleted.")
	return nil
}

func runStrategies(cmd *cobra.Command, args []string) {
	for _, d := range strategy.NewRegistry().All() {
		fmt.Printf("%-12s %-20s %s\n", d.ID, d.Name, d.Description)
	}
}

func runIntentStart(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.intents.StartProfile(args[0], intentDuration); err != nil {
		return err
	}
	fmt.Println("Session started.")
	return nil
}

func runIntentStop(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	stopped, err := a.intents.StopActiveSession()
	if err != nil {
		return err
	}
	if stopped {
		fmt.Println("Session ended.")
	} else {
		fmt.Println("Nothing stopped.")
	}
	return nil
}

func runIntentActive(cmd *cobra.Command, args []string) error {
	a, err := newApp(&infra.PresetScanner{})
	if err != nil {
		return err
	}
	defer a.close()

	active, err := a.intents.IsSessionActive()
	if err != nil {
		return err
	}
	fmt.Println(strconv.FormatBool(active))
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	snapshots := infra.NewFileSnapshotStore(cfg.DataDir)
	intervals := infra.NewFileIntervalScheduler(cfg.DataDir)
	enforcer := infra.NewLogEnforcer(logger)
	reconciler := usecase.NewReconciler(snapshots, enforcer, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	sched := daemon.NewScheduler(
		daemon.SchedulerConfig{
			TickInterval:      time.Duration(cfg.TickInterval),
			HeartbeatInterval: time.Duration(cfg.HeartbeatInterval),
		},
		intervals,
		reconciler,
		snapshots,
		logger,
	)
	err = sched.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("blockerd %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// scannerForCLI picks the preset scanner when a token was supplied, falling
// back to an interactive line read.
func scannerForCLI(token string) domain.Scanner {
	if token != "" {
		return &infra.PresetScanner{Token: token}
	}
	return &infra.LineScanner{In: os.Stdin, Out: os.Stdout}
}

// parseScheduleFlags builds a Schedule from the --schedule-* flags, or nil
// when none were given.
func parseScheduleFlags() (*domain.Schedule, error) {
	if scheduleDays == "" && scheduleStart == "" && scheduleEnd == "" {
		return nil, nil
	}
	if scheduleDays == "" || scheduleStart == "" || scheduleEnd == "" {
		return nil, fmt.Errorf("--schedule-days, --schedule-start and --schedule-end must be given together")
	}

	days, err := parseDays(scheduleDays)
	if err != nil {
		return nil, err
	}
	startH, startM, err := parseClock(scheduleStart)
	if err != nil {
		return nil, err
	}
	endH, endM, err := parseClock(scheduleEnd)
	if err != nil {
		return nil, err
	}

	return &domain.Schedule{
		Days:        days,
		StartHour:   startH,
		StartMinute: startM,
		EndHour:     endH,
		EndMinute:   endM,
	}, nil
}

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

func parseDays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		day, ok := dayNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return nil, fmt.Errorf("unknown day %q", part)
		}
		days = append(days, day)
	}
	return days, nil
}

func parseClock(s string) (int, int, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

func createLogger(cfg config.Config) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		level = parsed
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.LogFile != "" {
		zcfg.OutputPaths = []string{cfg.LogFile}
		zcfg.ErrorOutputPaths = []string{cfg.LogFile}
	}
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
