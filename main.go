package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"r2tabs/app"
	"r2tabs/cache"
	"r2tabs/config"
	"r2tabs/loader"
	"r2tabs/log"
	"r2tabs/proxy"
	"r2tabs/session"
	"r2tabs/session/vfs"
	"r2tabs/session/wasi"
	"r2tabs/ui"
)

var (
	version       = "0.1.0"
	versionFlag   string
	proxyFlag     bool
	noCacheFlag   bool
	noRestoreFlag bool
	listenFlag    string
	addrFlag      string
	lengthFlag    int
	showFlag      bool

	rootCmd = &cobra.Command{
		Use:   "r2tabs [file...]",
		Short: "r2tabs - Run radare2 WebAssembly builds side by side in tabs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			log.Initialize(false)
			defer log.Close()

			cfg := loadConfig()
			env, err := newEnvironment(cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			return app.Run(ctx, app.Deps{
				Config:      cfg,
				State:       config.LoadState(),
				Packages:    loader.NewRegistry(env.loader),
				Runtime:     env.runtime,
				NewDir:      env.newDir,
				Versions:    env.cache,
				Clipboard:   app.NewClipboard(),
				TranslateLF: env.runtime.Mode() == wasi.ModePipe,
				Restore:     !noRestoreFlag,
				Files:       args,
			})
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the archive proxy that serves radare2 builds as plain wasm",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(true)
			defer log.Close()

			cfg := config.LoadConfig()
			addr := cfg.ListenAddress
			if listenFlag != "" {
				addr = listenFlag
			}
			srv, err := proxy.NewServer(addr, proxy.NewFetcher(proxy.FetcherConfig{
				URLTemplate: cfg.ArchiveURLTemplate,
				EntrySuffix: cfg.EntrySuffix,
			}))
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			fmt.Printf("Proxy listening on http://%s\n", srv.Addr())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down proxy: %w", err)
			}
			return <-errCh
		},
	}

	fetchCmd = &cobra.Command{
		Use:   "fetch <version>",
		Short: "Download a radare2 build into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()

			cfg := loadConfig()
			bc, err := openCache(cfg)
			if err != nil {
				return err
			}
			ld := loader.NewFromConfig(cfg, bc)
			defer ld.Wait()

			pkg, err := app.Fetch(cmd.Context(), ld, loader.Request{
				Version:   args[0],
				UseProxy:  cfg.UseProxy,
				WantCache: true,
			})
			if err != nil {
				return err
			}
			fmt.Printf("radare2 %s: %s from %s (blake3 %s)\n",
				pkg.Version, ui.FormatBytes(int64(pkg.Size())), pkg.Source, pkg.Digest()[:16])
			return nil
		},
	}

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the binary cache",
	}

	cacheListCmd = &cobra.Command{
		Use:   "list",
		Short: "List cached versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := openCache(config.LoadConfig())
			if err != nil {
				return err
			}
			keys, err := bc.Keys()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("The cache is empty")
				return nil
			}
			for _, key := range keys {
				fmt.Printf("%-16s %s\n", key, ui.FormatBytes(bc.Size(key)))
			}
			return nil
		},
	}

	cacheRmCmd = &cobra.Command{
		Use:   "rm <version>...",
		Short: "Remove versions from the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := openCache(config.LoadConfig())
			if err != nil {
				return err
			}
			var errs []error
			for _, key := range args {
				if !bc.Has(key) {
					errs = append(errs, fmt.Errorf("%s is not cached", key))
					continue
				}
				if err := bc.Delete(key); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Printf("Removed %s\n", key)
			}
			return errors.Join(errs...)
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached version",
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := openCache(config.LoadConfig())
			if err != nil {
				return err
			}
			if err := bc.Clear(); err != nil {
				return err
			}
			fmt.Println("Cache has been cleared")
			return nil
		},
	}

	scrapeCmd = &cobra.Command{
		Use:       "scrape strings|hex|graph <file>",
		Short:     "Open a file in a single instance and print a structured view",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"strings", "hex", "graph"},
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()
			return runScrape(cmd.Context(), loadConfig(), args[0], args[1])
		},
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Forget all saved tabs",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()

			state := config.LoadState()
			storage := session.NewStorage(state)
			if err := storage.DeleteAllTabs(); err != nil {
				return fmt.Errorf("failed to reset storage: %w", err)
			}
			fmt.Println("Saved tabs have been cleared")
			return nil
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "Print debug information like config paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()

			cfg := config.LoadConfig()

			configDir, err := config.GetConfigDir()
			if err != nil {
				return fmt.Errorf("failed to get config directory: %w", err)
			}
			cacheDir, err := cfg.GetCacheDir()
			if err != nil {
				return err
			}
			configJson, _ := json.MarshalIndent(cfg, "", "  ")

			fmt.Printf("Config: %s\n%s\n", filepath.Join(configDir, config.ConfigFileName), configJson)
			fmt.Printf("State: %s\n", filepath.Join(configDir, config.StateFileName))
			fmt.Printf("Cache: %s\n", cacheDir)

			rt := wasi.NewFromConfig(cfg)
			if v, err := rt.Version(); err != nil {
				fmt.Printf("Runtime: %v\n", err)
			} else {
				fmt.Printf("Runtime: %s (%s)\n", v, rt.Mode())
			}
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of r2tabs",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("r2tabs version %s\n", version)
		},
	}
)

// loadConfig reads the config file and applies the command line overrides.
func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	if versionFlag != "" {
		cfg.DefaultVersion = versionFlag
	}
	if proxyFlag {
		cfg.UseProxy = true
	}
	if noCacheFlag {
		cfg.WantCache = false
	}
	return cfg
}

func openCache(cfg *config.Config) (*cache.BinaryCache, error) {
	dir, err := cfg.GetCacheDir()
	if err != nil {
		return nil, err
	}
	return cache.New(dir)
}

// environment holds the services every instance is launched with.
type environment struct {
	cache   *cache.BinaryCache
	loader  *loader.Loader
	runtime *wasi.Runtime
	tmpDir  string
}

func newEnvironment(cfg *config.Config) (*environment, error) {
	bc, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	rt := wasi.NewFromConfig(cfg)
	if !rt.IsAvailable() {
		return nil, fmt.Errorf("%s not found; install a WASI runner or set runtime_command in the config", cfg.RuntimeCommand)
	}
	tmpDir, err := os.MkdirTemp("", "r2tabs-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return &environment{
		cache:   bc,
		loader:  loader.NewFromConfig(cfg, bc),
		runtime: rt,
		tmpDir:  tmpDir,
	}, nil
}

func (e *environment) newDir() (*vfs.Dir, error) {
	return vfs.NewTemp(e.tmpDir)
}

// Close waits for pending cache writes and removes every file the
// instances used.
func (e *environment) Close() {
	e.loader.Wait()
	if err := e.runtime.Close(); err != nil {
		log.WarningLog.Printf("failed to remove staged packages: %v", err)
	}
	if err := os.RemoveAll(e.tmpDir); err != nil {
		log.WarningLog.Printf("failed to remove work directory: %v", err)
	}
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, fetchCmd, scrapeCmd} {
		c.Flags().BoolVar(&proxyFlag, "proxy", false, "Download through the hosted proxy")
	}
	for _, c := range []*cobra.Command{rootCmd, scrapeCmd} {
		c.Flags().StringVarP(&versionFlag, "r2-version", "r", "", "radare2 version to open files with")
		c.Flags().BoolVar(&noCacheFlag, "no-cache", false, "Do not store downloaded builds in the cache")
	}
	rootCmd.Flags().BoolVar(&noRestoreFlag, "no-restore", false, "Do not reopen the tabs of the last run")
	serveCmd.Flags().StringVarP(&listenFlag, "listen", "l", "", "Address to listen on (default from config)")
	scrapeCmd.Flags().StringVarP(&addrFlag, "addr", "a", "", "Address to seek to before scraping")
	scrapeCmd.Flags().IntVarP(&lengthFlag, "length", "n", 256, "Number of bytes to dump with hex")
	scrapeCmd.Flags().BoolVar(&showFlag, "show-output", false, "Mirror the instance's terminal to stderr")

	cacheCmd.AddCommand(cacheListCmd, cacheRmCmd, cacheClearCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
