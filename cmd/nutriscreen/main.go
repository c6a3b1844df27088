package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/nutriscreen/internal/profile"
	"github.com/hrygo/nutriscreen/internal/version"
	"github.com/hrygo/nutriscreen/rag"
	"github.com/hrygo/nutriscreen/server"
	"github.com/hrygo/nutriscreen/store"
	"github.com/hrygo/nutriscreen/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "nutriscreen",
	Short: "NRS-2002 nutrition risk screening service with hybrid guideline retrieval.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env file from current directory (ignore error if file doesn't exist)
		_ = godotenv.Load()
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		instanceProfile, err := loadProfile()
		if err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		storeInstance, err := openStore(ctx, instanceProfile)
		if err != nil {
			slog.Error("failed to open store", "error", err)
			os.Exit(1)
		}

		engine, err := rag.NewEngine(ctx, storeInstance, rag.ConfigFromProfile(instanceProfile))
		if err != nil {
			slog.Error("failed to create engine", "error", err)
			os.Exit(1)
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, engine)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			os.Exit(1)
		}

		c := make(chan os.Signal, 1)
		// The default signal sent by the `kill` command is SIGTERM,
		// which is taken as the graceful shutdown signal by most
		// process managers.
		signal.Notify(c, terminationSignals...)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)

		if err := s.Start(ctx); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("failed to start server", "error", err)
				cancel()
			}
		}

		<-ctx.Done()
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest guideline documents into the corpus.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		storeInstance, err := openStore(ctx, instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		engine, err := rag.NewEngine(ctx, storeInstance, rag.ConfigFromProfile(instanceProfile))
		if err != nil {
			return err
		}

		for _, path := range args {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			chunks := rag.SplitChunks(string(content), 500)
			stored, err := engine.IngestFile(ctx, "", filepath.Base(path), chunks)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			fmt.Printf("%s: %d chunks stored\n", path, stored)
		}
		return nil
	},
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	setupLogger(instanceProfile.Mode)
	return instanceProfile, nil
}

// setupLogger installs JSON logging for prod and verbose text logging
// otherwise.
func setupLogger(mode string) {
	if mode == "prod" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}

func openStore(ctx context.Context, instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, err
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		return nil, err
	}
	return storeInstance, nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("NutriScreen %s started\n", p.Version)
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Database driver: %s\n", p.Driver)
	if p.Data != "" {
		fmt.Printf("Data directory: %s\n", p.Data)
	}
	if p.Addr == "" {
		fmt.Printf("Listening on port %d\n", p.Port)
	} else {
		fmt.Printf("Listening on %s:%d\n", p.Addr, p.Port)
	}
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28090)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("nutriscreen")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(ingestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
