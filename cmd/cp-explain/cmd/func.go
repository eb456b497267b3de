package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alepiz/counterprocessor/functions"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/spf13/cobra"
)

var funcCmd = &cobra.Command{
	Use:   "func <name> <ocid> [args...]",
	Short: "Runs one aggregation function over the history of an OCID",
	Example: `  cp-explain --records records.json --now 1577836800000 func avg 101 10m
  cp-explain --records records.json func count 101 '#10' 5 '>'`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ocid %q", args[1])
		}
		env, err := newEnv()
		if err != nil {
			return err
		}
		fargs := make([]interface{}, 0, len(args)-2)
		for _, a := range args[2:] {
			fargs = append(fargs, a)
		}
		res, err := functions.Call(context.Background(), env, args[0], schema.OCID(id), fargs)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var funcsCmd = &cobra.Command{
	Use:   "funcs [name]",
	Short: "Describes the aggregation functions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names := functions.Names()
		if len(args) == 1 {
			names = args
		}
		for _, name := range names {
			desc, err := functions.Describe(name)
			if err != nil {
				return err
			}
			fmt.Println(desc)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(funcCmd)
	rootCmd.AddCommand(funcsCmd)
}
