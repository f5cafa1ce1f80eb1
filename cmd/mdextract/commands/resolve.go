package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/mdextract/docpipe"
	"github.com/hazyhaar/mdextract/extractor"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME [MIME]",
		Short: "Print the extension hint and extractor for a name or MIME type",
		Long: `Resolve applies the same rules as the service: the file name wins when
present, otherwise the MIME type is mapped, and anything unknown becomes ".tmp".
Pass "" as NAME to resolve a MIME type alone.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mime string
			if len(args) == 2 {
				mime = args[1]
			}
			ext := extractor.Resolve(args[0], mime)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ext, extractor.ExtractorFor(ext))
			return nil
		},
	}
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported input formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range append([]string{"msg", "eml"}, docpipe.SupportedFormats()...) {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
}
