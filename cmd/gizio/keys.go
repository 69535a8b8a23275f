package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys <prefix>",
		Short: "List the fields available for each particle type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, abbr := range s.PT.Abbrs() {
				sel, _ := s.PT.Get(abbr)

				// Show each field with its abbreviation, if any.
				short := map[string][]string{}
				for alias, target := range sel.Aliases() {
					short[target] = append(short[target], alias)
				}
				keys := []string{}
				for _, key := range sel.Keys() {
					if aliases := short[key]; len(aliases) > 0 {
						sort.Strings(aliases)
						key = fmt.Sprintf("%s (%s)", key, strings.Join(aliases, ", "))
					}
					keys = append(keys, key)
				}
				fmt.Fprintf(out, "%s [%d]: %s\n", abbr, sel.Len(),
					strings.Join(keys, ", "))
			}
			return nil
		},
	}
}
