package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/taxiclock/internal/backend"
	"github.com/christopherklint97/taxiclock/internal/config"
	"github.com/christopherklint97/taxiclock/internal/store"
	"github.com/christopherklint97/taxiclock/internal/timesheet"
	"github.com/christopherklint97/taxiclock/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "taxiclock",
	Short:         "Push timesheets to Clockify",
	Long:          "taxiclock pushes timesheet entries to Clockify and keeps a local copy of your Clockify projects and tasks for alias lookups.",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List Clockify projects and their tasks",
	RunE:  runProjects,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the local project and alias cache",
	RunE:  runUpdate,
}

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "List or add aliases",
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured and cached aliases",
	RunE:  runAliasList,
}

var aliasAddCmd = &cobra.Command{
	Use:   "add <alias> <projectId/taskId>",
	Short: "Add an alias to the config file",
	Args:  cobra.ExactArgs(2),
	RunE:  runAliasAdd,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pushed entries for a day",
	RunE:  runStatus,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (TOML or YAML)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding the local database (defaults to the config directory)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	projectsCmd.Flags().Bool("cached", false, "Show the local cache instead of querying Clockify")
	statusCmd.Flags().String("date", "today", "Day to show (YYYY-MM-DD or natural language)")

	aliasCmd.AddCommand(aliasListCmd)
	aliasCmd.AddCommand(aliasAddCmd)

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.ConfigPath()
}

func openStore(cmd *cobra.Command) (*store.DB, error) {
	dir, _ := cmd.Flags().GetString("data-dir")
	db, err := store.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// newBackend builds a backend whose aliases come from the config file first
// and the local project cache second.
func newBackend(cmd *cobra.Command, cfg *config.Config, db *store.DB) (*backend.Backend, error) {
	opts, err := cfg.BackendOptions()
	if err != nil {
		return nil, err
	}
	configured, err := cfg.AliasTable()
	if err != nil {
		return nil, fmt.Errorf("reading aliases: %w", err)
	}

	var aliases timesheet.ChainLookup
	aliases = append(aliases, configured)
	if db != nil {
		aliases = append(aliases, db)
	}

	return backend.New(opts, aliases, newLogger(cmd))
}

func runProjects(cmd *cobra.Command, args []string) error {
	cached, _ := cmd.Flags().GetBool("cached")

	var projects []*timesheet.Project
	if cached {
		db, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		projects, err = db.Projects()
		if err != nil {
			return fmt.Errorf("reading cached projects: %w", err)
		}
		if updated, err := db.ProjectsUpdatedAt(); err == nil && !updated.IsZero() {
			fmt.Println(dimStyle.Render("Cached " + updated.Local().Format("2006-01-02 15:04")))
		}
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		b, err := newBackend(cmd, cfg, nil)
		if err != nil {
			return err
		}
		projects, err = b.GetProjects(cmd.Context())
		if err != nil {
			return err
		}
	}

	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render("No projects found."))
		return nil
	}

	renderProjects(cmd.OutOrStdout(), projects)
	return nil
}

func renderProjects(w io.Writer, projects []*timesheet.Project) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Found %d projects:", len(projects))))
	for _, p := range projects {
		budget := ""
		if p.Budget != nil {
			budget = dimStyle.Render(fmt.Sprintf(" (budget %g)", *p.Budget))
		}
		if !p.IsActive() {
			budget += warningStyle.Render(" (" + p.Status + ")")
		}
		fmt.Fprintf(w, "  %s  %s%s\n", dimStyle.Render(p.ID), highlightStyle.Render(p.Name), budget)

		aliasFor := make(map[string]string, len(p.Aliases))
		for alias, id := range p.Aliases {
			aliasFor[id] = alias
		}
		for _, a := range p.Activities {
			fmt.Fprintf(w, "      %s  %-30s %s\n", dimStyle.Render(a.ID), a.Name, dimStyle.Render(aliasFor[a.ID]))
		}
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := newBackend(cmd, cfg, db)
	if err != nil {
		return err
	}

	projects, err := b.GetProjects(cmd.Context())
	if err != nil {
		return err
	}

	if err := db.SaveProjects(projects); err != nil {
		return fmt.Errorf("saving projects: %w", err)
	}

	activities := 0
	for _, p := range projects {
		activities += len(p.Activities)
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
		fmt.Sprintf("Updated %d projects and %d activities.", len(projects), activities),
	))
	return nil
}

func runAliasList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	configured, err := cfg.AliasTable()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Configured aliases:"))
	for alias, m := range configured {
		fmt.Fprintf(out, "  %-20s %s/%s\n", highlightStyle.Render(alias), m.ProjectID(), m.ActivityID())
	}

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	projects, err := db.Projects()
	if err != nil {
		return fmt.Errorf("reading cached projects: %w", err)
	}
	fmt.Fprintln(out, titleStyle.Render("Cached aliases:"))
	for _, p := range projects {
		for alias, taskID := range p.Aliases {
			label := p.Name
			if a, ok := p.Activity(taskID); ok {
				label += " / " + a.Name
			}
			fmt.Fprintf(out, "  %-20s %s/%s %s\n", highlightStyle.Render(alias), p.ID, taskID, dimStyle.Render(label))
		}
	}
	return nil
}

func runAliasAdd(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return err
	}

	added := config.Config{Aliases: map[string]string{args[0]: args[1]}}
	if _, err := added.AliasTable(); err != nil {
		return err
	}

	if err := config.SaveAliases(path, added.Aliases); err != nil {
		return fmt.Errorf("saving alias: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Added alias "+args[0]))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.BackendOptions()
	if err != nil {
		return err
	}
	// Pushes are recorded under the backend's day, not the machine's.
	loc, err := opts.Location()
	if err != nil {
		return err
	}

	dateStr, _ := cmd.Flags().GetString("date")
	day, err := parseDate(dateStr, time.Now().In(loc))
	if err != nil {
		return err
	}

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.PushesOn(day)
	if err != nil {
		return fmt.Errorf("fetching pushes: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(out, "No entries pushed for %s.\n", day.Format(time.DateOnly))
		return nil
	}

	var total time.Duration
	fmt.Fprintln(out, titleStyle.Render("Entries for "+day.Format(time.DateOnly)+":"))
	for _, r := range records {
		span := "     –     "
		if !r.StartTime.IsZero() && !r.EndTime.IsZero() {
			span = r.StartTime.In(loc).Format("15:04") + "–" + r.EndTime.In(loc).Format("15:04")
		}
		var status string
		switch r.Status {
		case store.StatusPushed:
			status = successStyle.Render(r.Status)
			total += r.EndTime.Sub(r.StartTime)
		case store.StatusFailed:
			status = errorStyle.Render(r.Status) + " " + dimStyle.Render(r.Error)
		default:
			status = dimStyle.Render(r.Status)
		}
		fmt.Fprintf(out, "  %s  %-15s %s  [%s]\n", span, r.Alias, r.Description, status)
	}

	fmt.Fprintf(out, "\nTotal pushed: %dh %dmin (%d entries)\n", int(total.Hours()), int(total.Minutes())%60, len(records))
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	configPath, err := configPath(cmd)
	if err != nil {
		return err
	}
	if custom, _ := cmd.Flags().GetString("config"); custom == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	} else if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Create default config file
		cfg := config.DefaultConfig()
		data := fmt.Sprintf(`[clockify]
# Either a backend url: url = "clockify://?token=xxx&workspace=yyy"
token = "%s"
workspace = "%s"
timezone = "%s"

[aliases]
# alias = "projectId/taskId"

[notifications]
enabled = %t
`,
			cfg.Clockify.Token,
			cfg.Clockify.Workspace,
			cfg.Clockify.Timezone,
			cfg.Notifications.Enabled,
		)
		if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, configPath}, &proc)
	if err != nil {
		// If editor fails, just print the path
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
