package commands

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/imagine/cli/logging"
	"github.com/petal-labs/imagine/core"
	"github.com/petal-labs/imagine/output"
)

type generateFlags struct {
	prompt      string
	output      string
	model       string
	aspectRatio string
	imageSize   string
	count       int
	all         bool
	timeout     time.Duration
	maxAttempts int
}

// generateResult is the --json document printed on success.
type generateResult struct {
	Paths        []string `json:"paths"`
	Model        string   `json:"model"`
	Attempts     int      `json:"attempts"`
	ModelVersion string   `json:"model_version,omitempty"`
	ResponseID   string   `json:"response_id,omitempty"`
	Text         string   `json:"text,omitempty"`
}

func (a *App) newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate an image from a prompt",
		Long: `Generate an image from a text prompt and write it to disk.

The file extension is chosen from the returned image type unless --output
already has one. When --output is a directory a unique name is used.

Examples:
  imagine generate --prompt "a lighthouse at dusk" --output lighthouse
  imagine generate "a red fox in snow" --aspect-ratio 16:9
  imagine generate --prompt "three cats" --count 3 --all --output cats/`,
		Args: cobra.ArbitraryArgs,
		RunE: a.runGenerate,
	}

	f := cmd.Flags()
	f.StringVarP(&a.gen.prompt, "prompt", "p", "", "text prompt (or pass it as arguments)")
	f.StringVarP(&a.gen.output, "output", "o", "", "output file or directory (default from config, else current directory)")
	f.StringVarP(&a.gen.model, "model", "m", "", "model ID (default from config)")
	f.StringVar(&a.gen.aspectRatio, "aspect-ratio", "", "aspect ratio, e.g. 1:1, 16:9")
	f.StringVar(&a.gen.imageSize, "image-size", "", "image size: 1K, 2K or 4K")
	f.IntVar(&a.gen.count, "count", 0, "number of candidates to request (1-4)")
	f.BoolVar(&a.gen.all, "all", false, "write every returned image instead of the first")
	f.DurationVar(&a.gen.timeout, "timeout", 0, "per-attempt timeout (default from config)")
	f.IntVar(&a.gen.maxAttempts, "max-attempts", 0, "total attempts including retries (default from config)")

	return cmd
}

func (a *App) runGenerate(cmd *cobra.Command, args []string) error {
	prompt := a.gen.prompt
	if prompt == "" {
		prompt = strings.Join(args, " ")
	} else if len(args) > 0 {
		return exitWithCode(ExitValidation, fmt.Errorf("pass the prompt either with --prompt or as arguments, not both"))
	}

	model, err := a.cfg.ResolveModel(a.gen.model)
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	params := map[string]any{}
	if a.gen.aspectRatio != "" {
		params[core.ParamAspectRatio] = a.gen.aspectRatio
	}
	if a.gen.imageSize != "" {
		params[core.ParamImageSize] = a.gen.imageSize
	}
	if cmd.Flags().Changed("count") {
		params[core.ParamSampleCount] = a.gen.count
	}

	cred, err := a.resolveCredential()
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	timeout := a.gen.timeout
	if timeout <= 0 {
		timeout = a.cfg.Timeout
	}
	maxAttempts := a.gen.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = a.cfg.MaxAttempts
	}

	gen := a.newGenerator(timeout, maxAttempts)
	resp, st, err := gen.Run(cmd.Context(), cred, core.NewGenerationRequest(model, prompt, params))
	if err != nil {
		return err
	}

	images := resp.Images()
	if !a.gen.all && len(images) > 1 {
		images = images[:1]
	}

	dest := a.gen.output
	if dest == "" {
		dest = a.cfg.OutputDir
	}
	if dest == "" {
		dest = "."
	}

	paths, err := output.NewWriter().WriteAll(images, dest)
	for _, p := range paths {
		a.logger.Info("image written", slog.String("path", p), logging.Model(model))
	}
	if err != nil {
		return err
	}

	if a.jsonOutput {
		return writeJSON(a.stdout, generateResult{
			Paths:        paths,
			Model:        string(model),
			Attempts:     st.Attempt,
			ModelVersion: resp.ModelVersion,
			ResponseID:   resp.ResponseID,
			Text:         resp.Text(),
		})
	}

	for _, p := range paths {
		fmt.Fprintln(a.stdout, p)
	}
	return nil
}
