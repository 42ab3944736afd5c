package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"idsearch/internal/lookup/models"
	"idsearch/pkg/requestcontext"
)

type searchOptions struct {
	format string // "json", "text"
}

func newSearchCmd(global *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search every identity source for a person",
		Long: `Search every configured identity source for an email, username or name.

Examples:
  idsearch search jdoe@example.com
  idsearch search "jane doe" --format text`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, global, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format: json, text")
	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, global *globalOptions, term string, opts searchOptions) error {
	a, err := buildApp(ctx, global, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

	ctx = requestcontext.WithClient(ctx, "idsearch-cli")
	outcome, err := a.Service.Search(ctx, term)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "text" {
		return writeText(out, outcome)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}

func writeText(w io.Writer, o *models.Outcome) error {
	var b strings.Builder
	switch o.Kind {
	case models.OutcomeFound:
		r := o.Record
		fmt.Fprintf(&b, "%s <%s>\n", r.Name, r.Email)
		if r.Title != "" || r.Department != "" {
			fmt.Fprintf(&b, "  %s, %s\n", r.Title, r.Department)
		}
		for _, p := range r.Phones {
			fmt.Fprintf(&b, "  %-16s %-18s %s\n", p.Type, p.DisplayValue, strings.Join(p.Sources, ","))
		}
	case models.OutcomeAmbiguous:
		fmt.Fprintf(&b, "%d candidates (%d total matches):\n", len(o.Candidates), o.Total)
		for _, c := range o.Candidates {
			fmt.Fprintf(&b, "  [%s] %s <%s> %s\n", c.Preview.Source, c.Preview.Name, c.Preview.Email, c.Preview.Department)
		}
	default:
		fmt.Fprintf(&b, "no match for %q\n", o.Query)
	}
	for source, f := range o.Failures {
		fmt.Fprintf(&b, "  ! %s: %s %s\n", source, f.Kind, f.Detail)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
