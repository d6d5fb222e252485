package cmd

import (
	"context"
	"fmt"
	u "net/url"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rangedl/internal/output"
	"github.com/tanq16/rangedl/internal/scheduler"
	"github.com/tanq16/rangedl/internal/utils"
)

var (
	outputPath    string
	chunkSize     string
	configFile    string
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	debug         bool
	logFile       bool
)

var RangedlVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "rangedl [URL]",
	Short:   "rangedl downloads a file over HTTP one byte range at a time",
	Version: RangedlVersion,
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logFile {
			closer, err := output.InitFileLogger(utils.LogFile)
			if err != nil {
				return fmt.Errorf("error opening log file: %w", err)
			}
			cobra.OnFinalize(func() { closer.Close() })
			return nil
		}
		output.InitLogger(debug)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			return
		}
		runDownload(cmd, args[0])
	},
}

func runDownload(cmd *cobra.Command, url string) {
	job, err := buildJob(cmd, url)
	if err != nil {
		output.PrintError(err.Error())
		os.Exit(1)
	}
	if err := scheduler.Run(cmd.Context(), job); err != nil {
		os.Exit(1)
	}
}

// resolveConfig layers flags the user actually set over the config file,
// and the config file over the defaults.
func resolveConfig(cmd *cobra.Command) (utils.Config, error) {
	cfg := utils.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = utils.LoadConfig(configFile); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = chunkSize
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("keep-alive-timeout") {
		cfg.KATimeout = kaTimeout
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = userAgent
	}
	if flags.Changed("proxy") {
		cfg.ProxyURL = proxyURL
	}
	if flags.Changed("proxy-username") {
		cfg.ProxyUsername = proxyUsername
	}
	if flags.Changed("proxy-password") {
		cfg.ProxyPassword = proxyPassword
	}
	for k, v := range utils.ParseHeaderArgs(headers) {
		cfg.Headers[k] = v
	}

	if cfg.UserAgent == "randomize" {
		cfg.UserAgent = utils.GetRandomUserAgent()
	}
	// Split auth out of the proxy URL unless given separately
	if parsedProxy, err := u.Parse(cfg.ProxyURL); err == nil && cfg.ProxyURL != "" && parsedProxy.User != nil {
		if cfg.ProxyUsername == "" {
			cfg.ProxyUsername = parsedProxy.User.Username()
			if password, set := parsedProxy.User.Password(); set {
				cfg.ProxyPassword = password
			}
		}
		parsedProxy.User = nil
		cfg.ProxyURL = parsedProxy.String()
	}
	return cfg, nil
}

func buildJob(cmd *cobra.Command, url string) (utils.RangeJob, error) {
	if _, err := u.Parse(url); err != nil {
		return utils.RangeJob{}, fmt.Errorf("invalid URL format: %w", err)
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return utils.RangeJob{}, err
	}
	size, err := utils.ParseChunkSize(cfg.ChunkSize)
	if err != nil {
		return utils.RangeJob{}, err
	}
	return utils.RangeJob{
		URL:              url,
		OutputPath:       outputPath,
		ChunkSize:        size,
		HTTPClientConfig: cfg.HTTPClientConfig(),
		Metadata:         make(map[string]any),
	}, nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the server or URL if not provided)")
	rootCmd.PersistentFlags().StringVarP(&chunkSize, "chunk-size", "s", fmt.Sprint(utils.DefaultChunkSize), "Bytes requested per range (eg. 10240, 64KiB, 8MB)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", utils.DefaultTimeout, "Request timeout (eg. 5s, 10m)")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", utils.DefaultKATimeout, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser agent)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Write debug logs to "+utils.LogFile+" instead of the terminal")

	rootCmd.AddCommand(newHTTPCmd())
	rootCmd.AddCommand(newCleanCmd())
}
