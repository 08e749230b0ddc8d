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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/awslabs/placement-core/internal/action"
	"github.com/awslabs/placement-core/internal/envcfg"
	"github.com/awslabs/placement-core/internal/metrics"
	"github.com/awslabs/placement-core/internal/node"
	"github.com/awslabs/placement-core/internal/obs"
	"github.com/awslabs/placement-core/internal/ordering"
	"github.com/awslabs/placement-core/internal/placement"
	"github.com/awslabs/placement-core/internal/resource"
	"github.com/awslabs/placement-core/internal/snapshot"
)

func newRunCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "run <snapshot>",
		Short: "run a placement and ordering round against a WorkingSet snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := envcfg.FromContext(cmd.Context())
			logger, err := obs.NewLogrLogger(*cfg, "schedcore")
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}

			ws, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}
			root, _, err := snapshot.Build(ws)
			if err != nil {
				return fmt.Errorf("materializing snapshot: %w", err)
			}

			rec := metrics.NewRecorder(prometheus.DefaultRegisterer)

			maxPerNode := root.MaxPerNode
			if maxPerNode <= 0 {
				maxPerNode = cfg.DefaultMaxPerNode
			}
			if root.Variant.IsCollective() && len(root.Children) > 0 {
				if err := placement.NewEngine(rec).AssignInstances(cmd.Context(), root, root.Children, root.MaxTotal, maxPerNode); err != nil {
					return fmt.Errorf("placement round: %w", err)
				}
			}
			logger.Info("placement complete", "collective", root.ID)

			g := action.NewGraph()
			updater := ordering.NewUpdater(rec)
			edges := 0
			for _, o := range ws.Orderings {
				firstRes := findResource(root, o.First)
				thenRes := findResource(root, o.Then)
				if firstRes == nil || thenRes == nil || len(firstRes.Actions) == 0 || len(thenRes.Actions) == 0 {
					logger.Error(nil, "ordering entry references a resource missing from the tree or with no actions",
						"first", o.First, "then", o.Then)
					continue
				}
				firstAction := firstRes.Actions[0]
				thenAction := thenRes.Actions[0]
				var n *node.ID
				if o.Node != "" {
					id := node.ID(o.Node)
					n = &id
				}
				pair := ordering.Pair{First: firstAction, Then: thenAction, FirstResource: firstRes, ThenResource: thenRes}
				updater.Update(cmd.Context(), g, pair, n, action.RunnableLeft)
				edges++
			}
			logger.Info("ordering complete", "requests", edges)

			if out != "" {
				if err := snapshot.Unbuild(ws, root, g); err != nil {
					return fmt.Errorf("projecting round results back onto the snapshot: %w", err)
				}
				if err := snapshot.Save(out, ws); err != nil {
					return fmt.Errorf("writing result snapshot: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the mutated WorkingSet back out to this path")
	return cmd
}

func findResource(r *resource.Resource, id string) *resource.Resource {
	if r == nil {
		return nil
	}
	if r.ID == id {
		return r
	}
	for _, c := range r.Children {
		if found := findResource(c, id); found != nil {
			return found
		}
	}
	return nil
}
