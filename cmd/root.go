package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/bookshelf/internal/config"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

var (
	openApp        = newApp
	stdout         = io.Writer(os.Stdout)
	logDestination = io.Writer(os.Stderr)
)

// CLI represents the complete command structure for the bookshelf application
type CLI struct {
	// Global flags
	Verbose   bool   `short:"v" help:"Enable debug logging"`
	Config    string `help:"Path to config file (defaults to ./config.yaml)" type:"path"`
	DB        string `name:"db" help:"Path to the library SQLite database"`
	AssetsDir string `help:"Directory for downloaded files"`
	NoCache   bool   `help:"Bypass the API response cache"`

	Add          AddCmd          `cmd:"" help:"Look up an ISBN and add or refresh the book"`
	UpdateCovers UpdateCoversCmd `cmd:"" name:"update-covers" aliases:"buc,update-cover" help:"Fetch covers for books that have none"`
	Ping         PingCmd         `cmd:"" help:"Check that every metadata source answers"`
	List         ListCmd         `cmd:"" help:"List stored records as YAML"`
	Activity     ActivityCmd     `cmd:"" help:"Track reading activity"`
	Cache        CacheCmd        `cmd:"" help:"Manage the API response cache"`
	Files        FilesCmd        `cmd:"" help:"Manage downloaded files"`
}

// Execute parses the command line and runs the selected command.
func Execute() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bookshelf"),
		kong.Description("Look up books by ISBN and keep a local library."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, kctx, &cli); err != nil {
		slog.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// run loads configuration, builds the application and runs the parsed command.
func run(ctx context.Context, kctx *kong.Context, cli *CLI) (err error) {
	v := viper.GetViper()
	if err := initConfig(v, cli.Config); err != nil {
		return err
	}
	applyFlags(v, cli)

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	initLogging(cfg.LogLevel)

	app, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, app.Close()) }()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.BindTo(stdout, (*io.Writer)(nil))
	return kctx.Run(app)
}

func initConfig(v *viper.Viper, path string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	config.SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		slog.Info("Config file not found, writing default config file...")
		if err := v.SafeWriteConfig(); err != nil {
			slog.Warn("Error writing config file", "error", err)
		}
	}
	return nil
}

// applyFlags lets global flags override config file and environment values.
func applyFlags(v *viper.Viper, cli *CLI) {
	if cli.DB != "" {
		v.Set("datastore.dbfile", cli.DB)
	}
	if cli.AssetsDir != "" {
		v.Set("assets.dir", cli.AssetsDir)
	}
	if cli.NoCache {
		v.Set("cache.enabled", false)
	}
	if cli.Verbose {
		v.Set("log.level", "debug")
	}
}

func initLogging(level slog.Level) {
	// Command output goes to stdout, logs to stderr
	handler := humanlog.NewHandler(logDestination, &humanlog.Options{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
