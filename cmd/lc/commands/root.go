package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"linkchain/pkg/app"
	"linkchain/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// 全局应用实例，供子命令使用
	LC *app.App
)

var rootCmd = &cobra.Command{
	Use:           "lc",
	Short:         "linkchain: tamper-evident hash chains",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		// init 命令负责创建环境，不需要 App
		if cmd.Name() == "init" {
			return nil
		}

		var err error
		LC, err = app.NewApp(cmd.Context())
		if errors.Is(err, app.ErrNotInitialized) {
			return fmt.Errorf("%w (did you run 'lc init'?)", err)
		}
		if err != nil {
			return fmt.Errorf("failed to initialize linkchain: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if LC == nil {
			return nil
		}
		err := LC.Close()
		LC = nil
		return err
	},
}

// Execute 是入口
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.lc/config.yaml or $HOME/.lc/config.yaml)")

	// 既可以在 yaml 里写，也可以用参数覆盖
	rootCmd.PersistentFlags().String("chain", "", "name of the chain to operate on")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	mustBind("chain.name", "chain")
	mustBind("log.level", "log-level")
}

func mustBind(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		fmt.Println("Failed to bind flag:", err)
		os.Exit(1)
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
}

// setupLogger 日志写到 stderr，stdout 只留给命令输出
func setupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(viper.GetString("log.level")))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
