package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/mdextract/caption"
	"github.com/hazyhaar/mdextract/docpipe"
	"github.com/hazyhaar/mdextract/extractor"
	"github.com/hazyhaar/mdextract/horosafe"
	"github.com/hazyhaar/mdextract/kit"
)

func newConvertCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert files to Markdown",
		Long: `Convert each FILE to Markdown. Without --out the results go to stdout in
argument order, separated by a blank line. With --out each input becomes
DIR/<name>.md.

Image inputs need a captioning model: set --caption-provider (openai or
anthropic) and a key, or OPENAI_BASE_URL / OPENAI_API_KEY / ANTHROPIC_API_KEY.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, v, args)
		},
	}

	flags := cmd.Flags()
	flags.StringP("out", "o", "", "output directory (default: stdout)")
	flags.IntP("jobs", "j", runtime.NumCPU(), "concurrent conversions")
	flags.StringP("format", "f", "", "output kind: text or markdown")
	flags.Duration("timeout", 5*time.Minute, "per-file conversion timeout (0 = none)")
	flags.String("caption-provider", "", "image captioning provider: openai, anthropic")
	flags.String("caption-model", "", "captioning model name")
	flags.String("caption-base-url", "", "captioning API base URL")
	flags.String("caption-api-key", "", "captioning API key")

	for _, name := range []string{"out", "jobs", "format", "timeout",
		"caption-provider", "caption-model", "caption-base-url", "caption-api-key"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	return cmd
}

type converted struct {
	path string
	text string
	err  error
}

func runConvert(cmd *cobra.Command, v *viper.Viper, files []string) error {
	logger := newLogger(cmd.ErrOrStderr(), v.GetBool("debug"))

	provider := v.GetString("caption-provider")
	if provider == "" && (v.GetString("caption-api-key") != "" || v.GetString("caption-base-url") != "") {
		provider = caption.ProviderOpenAI
	}
	describer, err := caption.New(caption.Config{
		Provider: provider,
		Model:    v.GetString("caption-model"),
		APIKey:   v.GetString("caption-api-key"),
		BaseURL:  v.GetString("caption-base-url"),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	pcfg := docpipe.Config{Logger: logger}
	if describer != nil {
		pcfg.Captioner = describer
	}

	jobs := v.GetInt("jobs")
	if jobs < 1 {
		jobs = 1
	}
	router := extractor.New(docpipe.New(pcfg), extractor.Config{
		MaxConcurrent:  int64(jobs),
		ConvertTimeout: v.GetDuration("timeout"),
		Logger:         logger,
	})

	outDir := v.GetString("out")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format := v.GetString("format")
	results := make([]converted, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			results[i] = convertOne(ctx, router, path, format, outDir)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	out := cmd.OutOrStdout()
	for i, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.path, r.err)
			continue
		}
		if outDir != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s\n", r.path, r.text)
			continue
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, r.text)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// convertOne converts path. With outDir set the Markdown is written there and
// text holds the output path.
func convertOne(ctx context.Context, router *extractor.Router, path, format, outDir string) converted {
	res := converted{path: path}
	f, err := os.Open(path)
	if err != nil {
		res.err = err
		return res
	}
	data, err := horosafe.LimitedReadAll(f, horosafe.MaxUpload)
	f.Close()
	if err != nil {
		res.err = err
		return res
	}
	ctx = kit.WithTransport(ctx, "cli")
	doc, err := router.Extract(ctx, extractor.InputFile{Content: data, Name: filepath.Base(path)}, format)
	if err != nil {
		res.err = err
		return res
	}
	if outDir == "" {
		res.text = doc.Text
		return res
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".md"
	dst, err := horosafe.SafePath(outDir, base)
	if err != nil {
		res.err = err
		return res
	}
	if err := os.WriteFile(dst, []byte(doc.Text+"\n"), 0o644); err != nil {
		res.err = fmt.Errorf("write %s: %w", dst, err)
		return res
	}
	res.text = dst
	return res
}
