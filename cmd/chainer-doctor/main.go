package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmaehashi/chainer-doctor/internal/config"
	"github.com/kmaehashi/chainer-doctor/internal/doctor"
)

var rootCmd = &cobra.Command{
	Use:   "chainer-doctor",
	Short: "Diagnose the host's CUDA and Chainer installation",
	Long:  "Inspect the host for CUDA driver, runtime, cuDNN, NCCL, and NVRTC libraries plus the Chainer/CuPy Python packages, and print a diagnostic report.",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		// A broken config file must not block diagnostics.
		fmt.Fprintf(os.Stderr, "warning: ignoring config: %v\n", err)
		cfg = &config.Config{}
	}
	return doctor.Run(cfg, os.Stdout)
}

func main() {
	if os.Getenv("CHAINER_DOCTOR_DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	// Probe findings never reach here; the only error Run can return
	// is a failure to write the report itself.
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
