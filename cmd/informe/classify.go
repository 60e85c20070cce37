package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/classify"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Print the category a message would get, and the keyword that decided it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(false)
			if err != nil {
				return err
			}
			rules, err := loadRules(cfg)
			if err != nil {
				return err
			}

			c, kw := classify.New(rules).Match(strings.Join(args, " "))
			if kw == "" {
				fmt.Printf("%s\t(no keyword matched)\n", c)
				return nil
			}
			fmt.Printf("%s\t%q\n", c, kw)
			return nil
		},
	}
}
