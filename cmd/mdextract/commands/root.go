// Package commands implements the mdextract CLI.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "mdextract",
		Short: "Convert documents and mail to Markdown",
		Long: `mdextract turns Outlook .msg, RFC 822 .eml, PDF, DOCX, ODT, XLSX, CSV,
HTML, text and (with a captioning model) image files into Markdown.

Examples:
  # Convert one file to stdout
  mdextract convert invoice.pdf

  # Convert a folder of mails, four at a time, one .md per input
  mdextract convert --out md/ --jobs 4 inbox/*.msg

  # Show which extractor a name or MIME type maps to
  mdextract resolve "" message/rfc822`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v)
		},
	}

	root.PersistentFlags().String("config", "", "config file (yaml)")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))

	root.AddCommand(newConvertCmd(v), newResolveCmd(), newFormatsCmd())
	return root
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix("MDEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("caption-api-key", "MDEXTRACT_CAPTION_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("caption-base-url", "MDEXTRACT_CAPTION_BASE_URL", "OPENAI_BASE_URL")

	cfgFile := v.GetString("config")
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
