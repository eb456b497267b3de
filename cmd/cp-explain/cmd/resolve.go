package cmd

import (
	"context"
	"fmt"

	"github.com/alepiz/counterprocessor/cache"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/variables"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cacheFile    string
	keepRecords  bool
	instanceName string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <request.json>",
	Short: "Resolves the variables of one counter of one object",
	Long: `Resolves the variables of the counter named in a resolve request, against a
cache update read from --cache and the history read from --records.
Prints whether the counter would be recalculated, the variables and the
trace of their evaluation. Use - to read the request from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var update msg.CacheUpdate
		if cacheFile == "" {
			return fmt.Errorf("--cache is required")
		}
		if err := readJSON(cacheFile, &update); err != nil {
			return err
		}
		update.FullUpdate = true
		c := cache.New()
		c.Apply(update)
		snap := c.Snapshot()

		var req msg.ResolveRequest
		if err := readJSON(args[0], &req); err != nil {
			return err
		}

		env, err := newEnv()
		if err != nil {
			return err
		}
		r := variables.NewResolver(env)
		r.Now = env.Now
		r.InstanceName = snap.Instance
		if instanceName != "" {
			r.InstanceName = instanceName
		}
		r.InstanceID = viper.GetString("instance-id")

		res, err := r.Resolve(context.Background(), snap, req)
		return printJSON(explain(res, err))
	},
}

type explanation struct {
	Calculate bool
	Reason    string
	Variables map[string]interface{}
	Trace     variables.Trace
	Error     string `json:",omitempty"`
}

func explain(res *variables.Result, err error) explanation {
	e := explanation{
		Calculate: res.Calculate,
		Reason:    res.Reason,
		Variables: res.Variables,
		Trace:     res.Trace,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if !keepRecords {
		for i := range e.Trace {
			e.Trace[i].Records = nil
		}
	}
	return e
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&cacheFile, "cache", "", "json file with a cache update describing counters, objects and variables")
	resolveCmd.Flags().BoolVar(&keepRecords, "show-records", false, "include the history records every function read in the trace")
	resolveCmd.Flags().StringVar(&instanceName, "instance-name", "", "value of ALEPIZ_NAME. defaults to the instance of the cache update")
	resolveCmd.Flags().String("instance-id", "cp-explain", "value of ALEPIZ_ID")
	viper.BindPFlag("instance-id", resolveCmd.Flags().Lookup("instance-id"))
}
