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

	"github.com/spf13/cobra"

	"github.com/awslabs/placement-core/internal/envcfg"
	"github.com/awslabs/placement-core/internal/optionlist"
)

// describedOptions is this binary's own tunable surface, described
// through the same optionlist collaborator spec §6 requires external
// agents to expose theirs through.
var describedOptions = []optionlist.Option{
	{
		Name: "default-max-per-node", Type: "integer", Default: "1", HasDefault: true,
		ShortDesc: "Fallback max_per_node used when a collective doesn't set its own.",
	},
	{
		Name: "tolerate-unknown-node-labels", Type: "boolean", Default: "false", HasDefault: true,
		ShortDesc: "Treat a missing node_attrs key as false instead of failing rule evaluation.",
		Advanced:  true,
	},
	{
		Name: "log-level", Type: "select", Values: []string{"debug", "info", "error"}, Default: "info", HasDefault: true,
		ShortDesc: "Log verbosity level.",
	},
	{
		Name: "legacy-option-list", Type: "boolean", Default: "false", HasDefault: true,
		ShortDesc: "Render option-list XML in the legacy dialect.",
		Advanced:  true,
	},
}

func newDescribeOptionsCommand() *cobra.Command {
	var xmlOut, all bool
	cmd := &cobra.Command{
		Use:   "describe-options",
		Short: "emit this binary's own option metadata (spec §6's option-list collaborator, exercised on itself)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := envcfg.FromContext(cmd.Context())
			if xmlOut {
				meta := optionlist.BuildMetadata("schedcore", "1.1", "schedcore tunables",
					"Runtime configuration for the placement/ordering core.", describedOptions, cfg.LegacyOptionList)
				rendered, err := optionlist.RenderXML(meta)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), rendered)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), optionlist.RenderText("schedcore", "schedcore tunables",
				"Runtime configuration for the placement/ordering core.", describedOptions, optionlist.FilterNone, all))
			return nil
		},
	}
	cmd.Flags().BoolVar(&xmlOut, "xml", false, "emit OCF-style resource-agent XML instead of text")
	cmd.Flags().BoolVar(&all, "all", false, "include advanced and deprecated options in text output")
	return cmd
}
