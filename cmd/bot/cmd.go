package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/palemoky/bird-count/internal/bot"
	"github.com/palemoky/bird-count/internal/protocol/codec"
	"github.com/palemoky/bird-count/internal/transport"
)

const releaseVersion = "1.0.0"

type options struct {
	url       string
	room      string
	name      string
	accuracy  float64
	thinkMin  time.Duration
	thinkMax  time.Duration
	stepDelay time.Duration
	steps     int
	binary    bool
	seed      uint64
}

func newCmd() *cobra.Command {
	opts := &options{}
	defaults := bot.DefaultOptions()

	v := viper.New()
	v.SetEnvPrefix("BIRDCOUNT_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "bird-count-bot",
		Short:         "Scripted player that joins a room and plays a full game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validate(opts); err != nil {
				return err
			}
			return run(cmd, opts)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&opts.url, "url", "u", "ws://localhost:3000/ws", "server WebSocket URL (env: BIRDCOUNT_BOT_URL)")
	fs.StringVarP(&opts.room, "room", "r", "", "room key, empty for the default room (env: BIRDCOUNT_BOT_ROOM)")
	fs.StringVarP(&opts.name, "name", "n", defaults.Name, "display name (env: BIRDCOUNT_BOT_NAME)")
	fs.Float64VarP(&opts.accuracy, "accuracy", "a", defaults.Accuracy, "probability of an exact guess (env: BIRDCOUNT_BOT_ACCURACY)")
	fs.DurationVar(&opts.thinkMin, "think-min", defaults.ThinkMin, "minimum think time per round (env: BIRDCOUNT_BOT_THINK_MIN)")
	fs.DurationVar(&opts.thinkMax, "think-max", defaults.ThinkMax, "maximum think time per round (env: BIRDCOUNT_BOT_THINK_MAX)")
	fs.DurationVar(&opts.stepDelay, "step-delay", defaults.StepDelay, "delay between count updates (env: BIRDCOUNT_BOT_STEP_DELAY)")
	fs.IntVar(&opts.steps, "steps", defaults.Steps, "count updates sent before locking in (env: BIRDCOUNT_BOT_STEPS)")
	fs.BoolVar(&opts.binary, "binary", false, "use the binary envelope instead of JSON (env: BIRDCOUNT_BOT_BINARY)")
	fs.Uint64Var(&opts.seed, "seed", 0, "random seed, 0 for random (env: BIRDCOUNT_BOT_SEED)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("bird-count-bot v{{.Version}}\n")

	return cmd
}

func validate(o *options) error {
	if o.url == "" {
		return errors.New("url is required")
	}
	if o.accuracy < 0 || o.accuracy > 1 {
		return fmt.Errorf("invalid accuracy (must be between 0 and 1): %v", o.accuracy)
	}
	if o.thinkMin < 0 || o.thinkMax < o.thinkMin {
		return fmt.Errorf("invalid think time range: %v..%v", o.thinkMin, o.thinkMax)
	}
	if o.steps < 0 {
		return fmt.Errorf("invalid steps: %d", o.steps)
	}
	return nil
}

func run(cmd *cobra.Command, o *options) error {
	format := codec.FormatJSON
	if o.binary {
		format = codec.FormatBinary
	}

	client := transport.NewClient(o.url, format)
	if err := client.Connect(cmd.Context()); err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}
	defer client.Close()

	log.Printf("🤖 %s 已连接 %s", o.name, o.url)

	b := bot.New(client, bot.Options{
		Name:      o.name,
		Room:      o.room,
		Accuracy:  o.accuracy,
		ThinkMin:  o.thinkMin,
		ThinkMax:  o.thinkMax,
		StepDelay: o.stepDelay,
		Steps:     o.steps,
		Seed:      o.seed,
	})

	result, err := b.Run(cmd.Context())
	if err != nil {
		return err
	}

	if result.IsDraw {
		log.Println("🤝 平局")
	} else {
		log.Printf("🏆 胜者: %s", result.WinnerName)
	}
	for _, p := range result.Players {
		log.Printf("   %s: %d", p.Name, p.TotalScore)
	}
	return nil
}
