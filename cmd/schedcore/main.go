/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/awslabs/placement-core/internal/envcfg"
	"github.com/awslabs/placement-core/internal/obs"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := envcfg.Defaults()
	root := &cobra.Command{
		Use:           "schedcore",
		Short:         "run and inspect placement/ordering rounds against a WorkingSet snapshot",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	fs := envcfg.NewFlagSet("schedcore", cfg)
	fs.AddFlags()
	root.PersistentFlags().AddGoFlagSet(fs.FlagSet)

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		parsed, err := fs.Parse(nil)
		if err != nil {
			return err
		}
		cfg = parsed
		logger, err := obs.NewLogrLogger(cfg, "schedcore")
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		obs.KlogBridge(logger)
		cmd.SetContext(envcfg.ToContext(cmd.Context(), &cfg))
		return nil
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newDescribeOptionsCommand())
	return root
}
