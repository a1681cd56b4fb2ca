// Package mcpserver exposes image generation as a Model Context Protocol tool
// over stdio.
package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/petal-labs/imagine/cli/config"
	"github.com/petal-labs/imagine/cli/logging"
	"github.com/petal-labs/imagine/core"
	"github.com/petal-labs/imagine/providers/gemini"
)

// ToolName is the name of the single tool the server registers.
const ToolName = "generate_image"

// Generator produces images for a request.
type Generator interface {
	Generate(ctx context.Context, cred core.Credential, req *core.GenerationRequest) (*core.GenerationResponse, error)
}

// ImageWriter persists a payload and returns the final path.
type ImageWriter interface {
	Write(p core.ImagePayload, dest string) (string, error)
}

// CredentialFunc resolves the API key for a call.
type CredentialFunc func() (core.Credential, error)

// Options wires the server's collaborators. Generator, Writer, Config and
// Credential are required.
type Options struct {
	Generator  Generator
	Writer     ImageWriter
	Config     *config.Config
	Credential CredentialFunc
	Logger     *slog.Logger
	Version    string
}

// Server handles generate_image calls.
type Server struct {
	generator  Generator
	writer     ImageWriter
	cfg        *config.Config
	credential CredentialFunc
	logger     *slog.Logger
	mcp        *server.MCPServer
}

// New creates a Server with its tool registered.
func New(opts Options) *Server {
	s := &Server{
		generator:  opts.Generator,
		writer:     opts.Writer,
		cfg:        opts.Config,
		credential: opts.Credential,
		logger:     opts.Logger,
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s.mcp = server.NewMCPServer("imagine", version, server.WithToolCapabilities(false))
	s.mcp.AddTool(s.Tool(), s.HandleGenerateImage)
	return s
}

// Tool describes generate_image. The model argument is an enum when an
// allow-list is configured.
func (s *Server) Tool() mcp.Tool {
	modelOpts := []mcp.PropertyOption{
		mcp.Description("Gemini model to use"),
		mcp.DefaultString(s.cfg.DefaultModel),
	}
	if len(s.cfg.AllowedModels) > 0 {
		modelOpts = append(modelOpts, mcp.Enum(s.cfg.AllowedModels...))
	}

	return mcp.NewTool(ToolName,
		mcp.WithDescription("Generate an image from a text prompt with Google Gemini."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text prompt for image generation"),
		),
		mcp.WithString("model", modelOpts...),
		mcp.WithString("aspect_ratio",
			mcp.Description("Aspect ratio of the generated image"),
			mcp.Enum(gemini.AspectRatios...),
		),
		mcp.WithString("output",
			mcp.Description("File or directory to write the image to. When omitted the image is returned inline."),
		),
	)
}

// HandleGenerateImage runs one generation. Failures are reported as tool
// errors so the client can show them to the model.
func (s *Server) HandleGenerateImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	model, err := s.cfg.ResolveModel(request.GetString("model", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := map[string]any{}
	if ar := request.GetString("aspect_ratio", ""); ar != "" {
		params[core.ParamAspectRatio] = ar
	}

	cred, err := s.credential()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.logger.Info("tool call", slog.String("tool", ToolName), logging.Model(model))

	resp, err := s.generator.Generate(ctx, cred, core.NewGenerationRequest(model, prompt, params))
	if err != nil {
		s.logger.Error("image generation failed", logging.Model(model), logging.Err(err))
		return mcp.NewToolResultError("image generation failed: " + err.Error()), nil
	}

	img, ok := resp.First()
	if !ok {
		return mcp.NewToolResultError("response contained no image"), nil
	}

	if output := request.GetString("output", ""); output != "" {
		path, err := s.writer.Write(img, s.resolveOutput(output))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(path), nil
	}

	summary := fmt.Sprintf("Generated %s image with %s (%d bytes)", img.MIMEType, model, len(img.Data))
	return mcp.NewToolResultImage(summary, base64.StdEncoding.EncodeToString(img.Data), img.MIMEType), nil
}

// resolveOutput places relative paths under the configured output directory.
func (s *Server) resolveOutput(output string) string {
	if filepath.IsAbs(output) || s.cfg.OutputDir == "" {
		return output
	}
	return filepath.Join(s.cfg.OutputDir, output)
}

// Serve speaks MCP over in and out until ctx is canceled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if s.generator == nil || s.writer == nil || s.credential == nil {
		return errors.New("mcpserver: server is missing a collaborator")
	}
	stdio := server.NewStdioServer(s.mcp)
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
