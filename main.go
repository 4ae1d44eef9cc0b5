// Command iconframe computes camera and lighting placements for rendering
// icons of 3D assets described by scene scripts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chazu/iconframe/pkg/batch"
	"github.com/chazu/iconframe/pkg/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
	config  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "iconframe",
		Short:        "Frame 3D assets for icon rendering",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug detail")
	cmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "job file (.toml, .yaml)")

	cmd.AddCommand(newFrameCmd(opts), newCheckCmd(opts))
	return cmd
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) job() (config.Job, error) {
	if o.config == "" {
		return config.Default(), nil
	}
	return config.Load(o.config)
}

func newFrameCmd(root *rootOptions) *cobra.Command {
	var (
		workers int
		out     string
		strict  bool
	)
	cmd := &cobra.Command{
		Use:   "frame [flags] scripts...",
		Short: "Compute camera and lights for each scene script",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := root.logger(cmd.ErrOrStderr())
			job, err := root.job()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				job.Workers = workers
			}

			assets, err := readAssets(args)
			if err != nil {
				return err
			}

			app := NewApp(job, log)
			outcomes := app.FrameAll(cmd.Context(), assets, job.Workers)

			reports := make([]Report, len(outcomes))
			for i, o := range outcomes {
				reports[i] = NewReport(o)
			}
			if err := writeJSON(cmd.OutOrStdout(), out, reports); err != nil {
				return err
			}

			s := batch.Summarize(outcomes)
			log.Info("done", "total", s.Total, "ok", s.Succeeded, "failed", s.Failed)
			if strict && s.Failed > 0 {
				return fmt.Errorf("%d of %d assets failed", s.Failed, s.Total)
			}
			return cmd.Context().Err()
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent assets (0 = one per CPU)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write JSON here instead of stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero if any asset fails")
	return cmd
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check scripts...",
		Short: "Evaluate and validate scene scripts without framing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := root.logger(cmd.ErrOrStderr())
			job, err := root.job()
			if err != nil {
				return err
			}
			assets, err := readAssets(args)
			if err != nil {
				return err
			}

			app := NewApp(job, log)
			failed := 0
			w := cmd.OutOrStdout()
			for _, a := range assets {
				r := app.Check(a.Name, a.Source)
				status := "ok"
				if len(r.Errors) > 0 {
					status = "FAIL"
					failed++
				}
				if status == "ok" {
					fmt.Fprintf(w, "%s\t%s\t%d nodes, %d meshes\n", status, r.Asset, r.Nodes, r.Meshes)
				} else {
					fmt.Fprintf(w, "%s\t%s\n", status, r.Asset)
				}
				for _, e := range r.Errors {
					fmt.Fprintf(w, "\terror: %s\n", e)
				}
				for _, msg := range r.Warnings {
					fmt.Fprintf(w, "\twarning: %s\n", msg)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scripts failed", failed, len(assets))
			}
			return nil
		},
	}
}

// readAssets loads each script; the asset name is the file name without
// its extension.
func readAssets(paths []string) ([]batch.Asset, error) {
	assets := make([]batch.Asset, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		assets = append(assets, batch.Asset{Name: name, Source: string(data)})
	}
	return assets, nil
}

// createOutput opens the --out file.
var createOutput = func(path string) (io.WriteCloser, error) { return os.Create(path) }

// writeJSON writes v to path, or to w when path is empty. A file that fails
// to close reports the error, since the data may not have reached disk.
func writeJSON(w io.Writer, path string, v any) error {
	if path == "" {
		return encodeJSON(w, v)
	}
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	if err := encodeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
