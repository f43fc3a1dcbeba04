package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fpang/chroma-restore/internal/cli"
	"github.com/fpang/chroma-restore/internal/config"
	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/fpang/chroma-restore/internal/session"
	"github.com/fpang/chroma-restore/internal/upload"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	hintFlag   string
	outputFlag string
)

var colorizeCmd = &cobra.Command{
	Use:   "colorize [photo]",
	Short: "Colorize one black and white photo",
	Long: `Colorize sends one photo to Gemini and writes the colorized result.

If no photo is given, a native file picker opens. If --hint is not set, you
are asked for an optional hint. The result is written to --output, or to
chroma-restored-<timestamp>.png in the current directory.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runColorizeCmd,
}

func init() {
	colorizeCmd.Flags().StringVar(&hintFlag, "hint", "", "Optional detail to guide colors (e.g. 'the car was dark red')")
	colorizeCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Where to write the colorized image")
}

func runColorizeCmd(cmd *cobra.Command, args []string) {
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		picked, ok, err := upload.PickFile()
		if err != nil {
			log.Fatal().Err(err).Msg("File picker unavailable; pass the photo path as an argument")
		}
		if !ok {
			fmt.Println("No photo selected.")
			return
		}
		path = picked
	}
	path, err = cli.ResolveImagePath(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid photo path")
	}

	hint := hintFlag
	if !cmd.Flags().Changed("hint") {
		hint = cli.PromptForHint(os.Stdin, os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	colorizer, err := cli.InitColorizer(ctx, cfg, validateKeyFlag)
	if err != nil {
		cli.HandleValidationError(err)
	}

	orch := session.New(colorizer, session.Options{
		TickInterval: cfg.Processing.TickInterval,
		Messages:     cfg.Processing.Messages,
		Timeout:      cfg.Gemini.Timeout,
	})
	defer orch.Close()

	d, err := colorizeFile(ctx, orch, cfg, path, hint, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Colorization failed")
	}

	out := outputFlag
	if out == "" {
		out = d.Filename
	}
	if err := os.WriteFile(out, d.Data, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", out).Msg("Failed to write colorized image")
	}

	fmt.Printf("\nSaved %s (%s)\n", out, cli.FormatDurationShort(time.Since(start)))
}

// colorizeFile loads path into the session, runs one colorization and
// returns the result. Loading messages are printed to w as they change.
func colorizeFile(ctx context.Context, orch *session.Orchestrator, cfg *config.Config, path, hint string, w io.Writer) (*session.Download, error) {
	c, ok := upload.Select(upload.FromPaths([]string{path}), cfg.Upload.MaxSize)
	if !ok {
		return nil, fmt.Errorf("%s is not a supported image or is larger than %d bytes", filepath.Base(path), cfg.Upload.MaxSize)
	}
	preview, err := upload.Read(c)
	if err != nil {
		return nil, err
	}

	var info *filehandler.ImageInfo
	if data, _, err := filehandler.DecodeDataURL(preview.DataURL); err == nil {
		info, _ = filehandler.InspectImage(data)
	}
	if info != nil {
		log.Info().
			Str("file", c.Filename).
			Int("width", info.Width).
			Int("height", info.Height).
			Str("camera", info.Camera()).
			Msg("Photo loaded")
	}

	updates, unsubscribe := orch.Subscribe()
	defer unsubscribe()

	orch.Accept(c.Filename, preview, info)
	orch.Dispatch(session.HintChanged{Hint: hint})
	m := orch.Dispatch(session.ColorizeRequested{})

	last := ""
	for {
		switch m.State {
		case session.Complete:
			return orch.Download()
		case session.Error:
			return nil, fmt.Errorf("%s: %s", m.Err.Message, m.Err.Details)
		case session.Processing:
			if msg := m.LoadingMessage(); msg != "" && msg != last {
				fmt.Fprintf(w, "  %s\n", msg)
				last = msg
			}
		}

		select {
		case next, open := <-updates:
			if !open {
				return nil, fmt.Errorf("session closed before colorization finished")
			}
			m = next
		case <-ctx.Done():
			orch.Dispatch(session.Reset{})
			return nil, ctx.Err()
		}
	}
}
