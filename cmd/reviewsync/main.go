package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tomatocup1/reviewsync/internal/browser"
	"github.com/tomatocup1/reviewsync/internal/config"
	"github.com/tomatocup1/reviewsync/internal/crawl"
	"github.com/tomatocup1/reviewsync/internal/database"
	"github.com/tomatocup1/reviewsync/internal/llm"
	"github.com/tomatocup1/reviewsync/internal/pipeline"
	"github.com/tomatocup1/reviewsync/internal/reply"
	"github.com/tomatocup1/reviewsync/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "reviewsync",
	Short:   "Delivery platform review replies, automated",
	Long:    "ReviewSync crawls Baemin, Coupang Eats and Yogiyo merchant review pages, drafts owner replies, and posts them back.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(replyCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(storesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reviewsync", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/reviewsync/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to adjust platform selectors and the reply provider, then add stores with: reviewsync stores add")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Stores:")
		fmt.Printf("  Registered: %d\n", stats.TotalStores)
		fmt.Printf("  Active: %d\n", stats.ActiveStores)
		fmt.Println("\nReviews:")
		fmt.Printf("  Total collected: %d\n", stats.TotalReviews)
		fmt.Printf("  Collected today: %d\n", stats.ReviewsToday)
		fmt.Println("\nReplies:")
		fmt.Printf("  Pending: %d\n", stats.PendingReplies)
		fmt.Printf("  Posted: %d\n", stats.PostedReplies)
		fmt.Printf("  Skipped: %d\n", stats.SkippedReplies)
		fmt.Printf("  Failed: %d\n", stats.FailedReplies)

		if lastRun, _ := db.GetLastRunDate(); lastRun != "" {
			fmt.Printf("\nLast run: %s\n", lastRun)
		}
		return nil
	},
}

// --- crawl command ---

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl review pages of all active stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		br, err := browser.Launch(cfg.Browser)
		if err != nil {
			return err
		}
		defer br.Close()

		result, err := crawl.NewCrawler(cfg, db, br).CrawlAll(context.Background())
		if err != nil {
			return err
		}

		fmt.Println("\nCrawl complete:")
		fmt.Printf("  Stores crawled: %d\n", result.StoresCrawled)
		fmt.Printf("  Reviews found: %d\n", result.TotalFound)
		fmt.Printf("  New reviews: %d\n", result.NewReviews)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)

		if len(result.Stores) > 0 {
			fmt.Println("\nNew reviews by store:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Stores {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		for _, err := range result.Errors {
			fmt.Printf("  Warning: %v\n", err)
		}
		return nil
	},
}

// --- reply command ---

var draftOnly bool

var replyCmd = &cobra.Command{
	Use:   "reply",
	Short: "Draft replies for unanswered reviews and post the queued ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		provider := llm.CreateProvider(cfg.Replies)

		genRes, err := reply.NewGenerator(cfg, db, provider).Generate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Drafted %d replies (%d already queued)\n", genRes.Drafted, genRes.AlreadyQueued)

		if draftOnly {
			fmt.Println("Draft-only mode: review them with 'reviewsync serve' before posting.")
			return nil
		}

		br, err := browser.Launch(cfg.Browser)
		if err != nil {
			return err
		}
		defer br.Close()

		postRes, err := reply.NewPoster(cfg, db, br).Post(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Posted %d replies, %d skipped, %d failed\n", postRes.Posted, postRes.Skipped, postRes.Failed)
		return nil
	},
}

func init() {
	replyCmd.Flags().BoolVar(&draftOnly, "draft-only", false, "Queue drafts without posting them")
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: crawl -> draft -> post",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var result *pipeline.Result
		if dryRun {
			result = pipeline.New(cfg, db, nil).DryRun()
		} else {
			br, err := browser.Launch(cfg.Browser)
			if err != nil {
				return err
			}
			defer br.Close()
			result = pipeline.New(cfg, db, br).Run(context.Background())
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/3: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun && !result.Failed() {
			fmt.Println("\nRun complete! Use 'reviewsync serve' to browse the results.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting dashboard at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run the dashboard on (default from config)")
}

// --- stores command ---

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manage registered stores",
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stores, err := db.GetAllStores()
		if err != nil {
			return err
		}

		if len(stores) == 0 {
			fmt.Println("No stores registered. Add one with: reviewsync stores add")
			return nil
		}

		fmt.Println("Stores:")
		fmt.Println()
		for _, s := range stores {
			icon := " "
			if s.IsActive {
				icon = "*"
			}
			fmt.Printf("  [%d] %s %s (%s/%s)\n", s.ID, icon, s.Name, s.Platform, s.StoreCode)
			if s.ReplyGuideline != nil && *s.ReplyGuideline != "" {
				guideline := *s.ReplyGuideline
				if len([]rune(guideline)) > 40 {
					guideline = string([]rune(guideline)[:40]) + "..."
				}
				fmt.Printf("        %s\n", guideline)
			}
		}
		return nil
	},
}

var storesAddCmd = &cobra.Command{
	Use:   "add [platform] [store-code] [name]",
	Short: "Register a store",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		platform, code, name := args[0], args[1], args[2]
		if _, err := cfg.GetPlatform(platform); err != nil {
			return err
		}

		id, err := db.InsertStore(platform, code, name, nil)
		if err != nil {
			return err
		}
		if id == 0 {
			fmt.Printf("Store %s/%s already registered\n", platform, code)
			return nil
		}
		fmt.Printf("Added store [%d]: %s (%s/%s)\n", id, name, platform, code)
		return nil
	},
}

var storesRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a store and its reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := lookupStore(db, args[0])
		if err != nil {
			return err
		}

		if err := db.DeleteStore(store.ID); err != nil {
			return err
		}
		fmt.Printf("Removed store [%d]: %s\n", store.ID, store.Name)
		return nil
	},
}

var storesToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Toggle a store's active state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := lookupStore(db, args[0])
		if err != nil {
			return err
		}

		if err := db.ToggleStore(store.ID); err != nil {
			return err
		}
		newState := "disabled"
		if !store.IsActive {
			newState = "enabled"
		}
		fmt.Printf("Store [%d] %s: %s\n", store.ID, store.Name, newState)
		return nil
	},
}

var storesGuidelineCmd = &cobra.Command{
	Use:   "guideline [id] [text]",
	Short: "Set a store's reply guideline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := lookupStore(db, args[0])
		if err != nil {
			return err
		}

		if err := db.UpdateStoreGuideline(store.ID, args[1]); err != nil {
			return err
		}
		fmt.Printf("Updated guideline for [%d] %s\n", store.ID, store.Name)
		return nil
	},
}

func init() {
	storesCmd.AddCommand(storesListCmd)
	storesCmd.AddCommand(storesAddCmd)
	storesCmd.AddCommand(storesRemoveCmd)
	storesCmd.AddCommand(storesToggleCmd)
	storesCmd.AddCommand(storesGuidelineCmd)
}

func lookupStore(db *database.DB, arg string) (*database.Store, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid store ID: %s", arg)
	}
	store, err := db.GetStoreByID(id)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("store %d not found", id)
	}
	return store, nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "reviewsync.db")
	return database.Open(dbPath)
}
