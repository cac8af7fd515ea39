package main

import (
	"github.com/spf13/cobra"

	"github.com/oueway/jsonapikit"
)

type genericEndpoint = jsonapikit.Endpoint[jsonapikit.GenericResource, jsonapikit.FilterCase, string, string]

func newGetCommand(a *app) *cobra.Command {
	var include []string

	cmd := &cobra.Command{
		Use:         "get <path> [id]",
		Short:       "Fetch a resource or a resource path",
		Annotations: map[string]string{needsClient: "true"},
		Args:        cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 2 {
				id = args[1]
			}

			endpoint := genericEndpoint{Path: args[0]}
			resp, err := endpoint.Get(cmd.Context(), a.client, id, include...)
			if err != nil {
				return describe(err)
			}
			return a.print(cmd.OutOrStdout(), renderDocument(resp, id != ""))
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", nil, "relationships to include")
	return cmd
}
