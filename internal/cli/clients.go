package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vk/dosgrid/internal/app"
	"github.com/zclconf/go-cty/cty"
)

// NewClientsCommand creates the clients command listing every registered
// client type with its arguments and their defaults.
func NewClientsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List the available client types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config("-")
			if err != nil {
				return err
			}
			a := app.NewApp(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts.modules...)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tARGUMENTS\tDESCRIPTION")
			for _, r := range a.Registry().Types() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, formatArgs(r.Defaults), r.Description)
			}
			return tw.Flush()
		},
	}
}

func formatArgs(v cty.Value) string {
	if v == cty.NilVal || v.IsNull() || v.LengthInt() == 0 {
		return "-"
	}
	m := v.AsValueMap()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(name)
		sb.WriteString("=")
		writeValue(&sb, m[name])
	}
	return sb.String()
}

func writeValue(w io.Writer, v cty.Value) {
	switch {
	case v.IsNull():
		fmt.Fprint(w, "null")
	case v.Type() == cty.String:
		fmt.Fprintf(w, "%q", v.AsString())
	case v.Type() == cty.Number:
		fmt.Fprint(w, v.AsBigFloat().Text('g', -1))
	case v.Type() == cty.Bool:
		fmt.Fprint(w, v.True())
	default:
		fmt.Fprint(w, v.GoString())
	}
}
