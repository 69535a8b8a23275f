package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) headerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "header <prefix>",
		Short: "Print the decoded header and particle counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "snapshot: %s (%d files)\n", s.Name(), len(s.Paths()))
			fmt.Fprintln(out, s.Header())
			for _, c := range s.Shape() {
				fmt.Fprintf(out, "%-10s %d\n", c.Ptype, c.N)
			}
			return nil
		},
	}
}
