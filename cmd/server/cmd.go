package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/palemoky/bird-count/internal/config"
	"github.com/palemoky/bird-count/internal/logger"
	"github.com/palemoky/bird-count/internal/server"
)

const releaseVersion = "1.0.0"

// options 命令行参数，只有显式设置（flag 或环境变量）的值才覆盖配置文件
type options struct {
	configPath  string
	host        string
	port        int
	publicURL   string
	profile     bool
	logFile     string
	redis       bool
	redisAddr   string
	rounds      int
	revealDelay int
}

func newCmd() *cobra.Command {
	opts := &options{}

	v := viper.New()
	v.SetEnvPrefix("BIRDCOUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "bird-count-server",
		Short:         "Room coordinator for the two-player bird counting game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			applyOverrides(cfg, cmd.Flags(), opts)
			if err := validate(cfg); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "path to YAML config file (env: BIRDCOUNT_CONFIG)")
	fs.StringVarP(&opts.host, "host", "b", "", "address to bind to (env: BIRDCOUNT_HOST)")
	fs.IntVarP(&opts.port, "port", "p", 0, "port to listen on (env: BIRDCOUNT_PORT)")
	fs.StringVar(&opts.publicURL, "public-url", "", "public base URL used in room share links (env: BIRDCOUNT_PUBLIC_URL)")
	fs.BoolVar(&opts.profile, "profile", false, "register net/http/pprof handlers (env: BIRDCOUNT_PROFILE)")
	fs.StringVar(&opts.logFile, "log-file", "", "also write logs to this file (env: BIRDCOUNT_LOG_FILE)")
	fs.BoolVar(&opts.redis, "redis", false, "mirror rooms and record the leaderboard in Redis (env: BIRDCOUNT_REDIS)")
	fs.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address (env: BIRDCOUNT_REDIS_ADDR)")
	fs.IntVar(&opts.rounds, "rounds", 0, "rounds per game (env: BIRDCOUNT_ROUNDS)")
	fs.IntVar(&opts.revealDelay, "reveal-delay-ms", 0, "reveal phase length in milliseconds (env: BIRDCOUNT_REVEAL_DELAY_MS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("bird-count-server v{{.Version}}\n")

	return cmd
}

// loadConfig 加载配置文件，文件不存在时使用默认配置
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("配置文件 %s 不存在，使用默认配置", path)
		return config.Default(), nil
	}
	return nil, fmt.Errorf("加载配置文件失败: %w", err)
}

// applyOverrides 用显式设置的参数覆盖配置
func applyOverrides(cfg *config.Config, fs *pflag.FlagSet, o *options) {
	if fs.Changed("host") {
		cfg.Server.Host = o.host
	}
	if fs.Changed("port") {
		cfg.Server.Port = o.port
	}
	if fs.Changed("public-url") {
		cfg.Server.PublicURL = o.publicURL
	}
	if fs.Changed("profile") {
		cfg.Server.Profile = o.profile
	}
	if fs.Changed("log-file") {
		cfg.Server.LogFile = o.logFile
	}
	if fs.Changed("redis") {
		cfg.Redis.Enabled = o.redis
	}
	if fs.Changed("redis-addr") {
		cfg.Redis.Addr = o.redisAddr
	}
	if fs.Changed("rounds") {
		cfg.Game.TotalRounds = o.rounds
	}
	if fs.Changed("reveal-delay-ms") {
		cfg.Game.RevealDelayMs = o.revealDelay
	}
}

func validate(cfg *config.Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", cfg.Server.Port)
	}
	if cfg.Game.TotalRounds < 1 {
		return fmt.Errorf("invalid rounds (must be at least 1): %d", cfg.Game.TotalRounds)
	}
	if cfg.Game.RevealDelayMs < 0 {
		return fmt.Errorf("invalid reveal delay: %dms", cfg.Game.RevealDelayMs)
	}
	return nil
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	if err := logger.Init(cfg.Server.LogFile); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Close()

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("创建服务器失败: %w", err)
	}

	errs := make(chan error, 1)
	go func() {
		log.Println("🐦 数鸟游戏服务器启动中...")
		errs <- srv.Start()
	}()

	select {
	case err := <-errs:
		return err
	case <-cmd.Context().Done():
		log.Println("正在关闭服务器...")
		srv.GracefulShutdown(cfg.Game.ShutdownTimeoutDuration())
		return nil
	}
}
