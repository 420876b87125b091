package main

import (
	"fmt"
	"os"

	"StockHolo/internal/di"
	"StockHolo/internal/domain/models"
	"StockHolo/internal/render"
	"StockHolo/internal/services/encoder"
	"StockHolo/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath string

	encScore      float64
	encVolatility float64
	encPrice      float64
	encReference  float64
	encSources    int
	encTime       float64
	encPolicy     string
	encBand       float64
)

var rootCmd = &cobra.Command{
	Use:   "stockholo",
	Short: "Holographic stock market visualizer backend",
	Long: `StockHolo tracks a watchlist of stocks, blends live quotes and news
sentiment into it and streams render-ready frames to browsers and Kafka.`,
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, refresh loops and render surfaces",
	RunE:  runServe,
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the visual encoding for one set of inputs",
	Long: `Encode runs the visual encoder once and prints the swatch and values.

Example usage:
  stockholo encode --score 0.7 --volatility 0.3
  stockholo encode --score -0.4 --price 90 --reference 100 --policy four_bucket`,
	RunE: runEncode,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	encodeCmd.Flags().Float64Var(&encScore, "score", 0, "sentiment score in [-1,1]")
	encodeCmd.Flags().Float64Var(&encVolatility, "volatility", 0, "volatility in [0,1]")
	encodeCmd.Flags().Float64Var(&encPrice, "price", 100, "current price")
	encodeCmd.Flags().Float64Var(&encReference, "reference", 100, "reference price")
	encodeCmd.Flags().IntVar(&encSources, "sources", 0, "sentiment source count")
	encodeCmd.Flags().Float64Var(&encTime, "t", 0, "animation time in seconds")
	encodeCmd.Flags().StringVar(&encPolicy, "policy", encoder.PolicyFiveBucket, "trend policy: five_bucket or four_bucket")
	encodeCmd.Flags().Float64Var(&encBand, "neutral-band", 0, "neutral band width")

	rootCmd.AddCommand(serveCmd, encodeCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	// Run application (blocks until signal)
	return app.Run()
}

func runEncode(cmd *cobra.Command, _ []string) error {
	enc := encoder.New(encoder.Config{NeutralBandWidth: encBand, TrendPolicy: encPolicy})
	s := &models.StockSnapshot{
		Symbol:         "PREVIEW",
		Price:          encPrice,
		ReferencePrice: encReference,
		Sentiment:      models.Sentiment{Score: encScore, Sources: encSources},
		Volatility:     encVolatility,
	}
	v := enc.Encode(s, 0, encTime)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, render.Swatch(v))
	fmt.Fprintf(out, "color     %s rgb(%d,%d,%d)\n", v.Hex, v.RGB[0], v.RGB[1], v.RGB[2])
	fmt.Fprintf(out, "trend     %s (%s)\n", v.Trend, enc.Policy())
	fmt.Fprintf(out, "scale     %.3f\n", v.SizeScale)
	fmt.Fprintf(out, "pulse     %.4f (max %.4f)\n", v.PulseAmplitude, v.MaxPulse)
	fmt.Fprintf(out, "particles %d\n", v.Particles)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
