package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fpang/chroma-restore/internal/cli"
	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/fpang/chroma-restore/internal/session"
	"github.com/fpang/chroma-restore/internal/upload"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve colorization as an MCP tool over stdio",
	Long: `MCP starts a Model Context Protocol server on stdin/stdout exposing a
"colorize" tool, so assistants can restore photos from local paths.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		colorizer, err := cli.InitColorizer(ctx, cfg, validateKeyFlag)
		if err != nil {
			cli.HandleValidationError(err)
		}

		server := newMCPServer(colorizer, cfg.Upload.MaxSize)
		log.Info().Str("model", colorizer.Model()).Msg("MCP server listening on stdio")
		if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("MCP server failed")
		}
	},
}

type colorizeInput struct {
	Path         string `json:"path" jsonschema:"path of the black and white photo on this machine"`
	Hint         string `json:"hint,omitempty" jsonschema:"optional detail to guide colors, e.g. the dress was dark blue"`
	Output       string `json:"output,omitempty" jsonschema:"optional path to write the full size colorized image to"`
	MaxDimension int    `json:"max_dimension,omitempty" jsonschema:"largest side in pixels of the returned image; 0 returns full size"`
}

type colorizeOutput struct {
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	SavedTo  string `json:"saved_to,omitempty"`
}

func newMCPServer(c session.Colorizer, maxSize int64) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "chroma-restore", Version: version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "colorize",
		Description: "Colorize a black and white photo with Gemini and return the result as an image.",
	}, colorizeTool(c, maxSize))
	return server
}

// colorizeTool returns the handler for the "colorize" tool. Each call is
// independent; there is no shared session.
func colorizeTool(c session.Colorizer, maxSize int64) mcp.ToolHandlerFor[colorizeInput, colorizeOutput] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in colorizeInput) (*mcp.CallToolResult, colorizeOutput, error) {
		var out colorizeOutput

		path, err := cli.ResolveImagePath(in.Path)
		if err != nil {
			return nil, out, err
		}
		cand, ok := upload.Select(upload.FromPaths([]string{path}), maxSize)
		if !ok {
			return nil, out, fmt.Errorf("%s is not a supported image or is larger than %d bytes", filepath.Base(path), maxSize)
		}
		preview, err := upload.Read(cand)
		if err != nil {
			return nil, out, err
		}

		if err := c.Preflight(); err != nil {
			return nil, out, err
		}
		result, err := c.Colorize(ctx, preview.Payload, in.Hint)
		if err != nil {
			return nil, out, fmt.Errorf("%s: %w", session.MsgColorizeFailed, err)
		}
		data, err := result.Bytes()
		if err != nil {
			return nil, out, fmt.Errorf("colorized image is not valid base64: %w", err)
		}
		out.MIMEType = result.MIMEType

		if in.Output != "" {
			if err := os.WriteFile(in.Output, data, 0o644); err != nil {
				return nil, out, fmt.Errorf("failed to write %s: %w", in.Output, err)
			}
			out.SavedTo = in.Output
		}

		if in.MaxDimension > 0 {
			data, out.MIMEType, err = filehandler.Thumbnail(data, result.MIMEType, in.MaxDimension)
			if err != nil {
				return nil, out, err
			}
		}
		if info, err := filehandler.InspectImage(data); err == nil {
			out.Width, out.Height = info.Width, info.Height
		}

		log.Info().
			Str("path", path).
			Bool("has_hint", in.Hint != "").
			Int("width", out.Width).
			Int("height", out.Height).
			Msg("MCP colorize complete")

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.ImageContent{Data: data, MIMEType: out.MIMEType},
			},
		}, out, nil
	}
}
