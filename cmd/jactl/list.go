package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oueway/jsonapikit"
)

type listFlags struct {
	filters   []string
	sort      []string
	include   []string
	pageSize  int
	pageIndex string
	all       bool
	maxPages  int
	plain     bool
}

func newListCommand(a *app) *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:   "list <path>",
		Short: "List a resource collection",
		Long: `List a resource collection with filters, sorting and includes.

Filters are name=value pairs. Dotted names group fields of one filter:
date.from=2024-01-01 and date.to=2024-02-01 become filter[dateFrom] and
filter[dateTo]. Sort keys take a leading "-" for descending.`,
		Annotations: map[string]string{needsClient: "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(f.filters)
			if err != nil {
				return err
			}

			endpoint := jsonapikit.NewEndpoint[jsonapikit.GenericResource, jsonapikit.FilterCase, string, string](args[0])
			if f.plain {
				endpoint.FilterStyle = jsonapikit.FilterStylePlain
			}

			resp, err := endpoint.List(cmd.Context(), a.client, jsonapikit.ListOptions[jsonapikit.FilterCase, string, string]{
				Filters:   filters,
				Sort:      f.sort,
				Include:   f.include,
				PageSize:  f.pageSize,
				PageIndex: f.pageIndex,
			})
			if err != nil {
				return describe(err)
			}

			if f.all {
				resp, err = jsonapikit.FetchAll(cmd.Context(), a.client, resp, f.maxPages)
				if err != nil {
					a.logger.Warn().Err(err).Int("resources", len(resp.Data)).Msg("stopped paging early")
				}
			}
			return a.print(cmd.OutOrStdout(), renderDocument(resp, false))
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&f.filters, "filter", nil, "filter as name=value, repeatable")
	flags.StringSliceVar(&f.sort, "sort", nil, "sort keys, prefix with - for descending")
	flags.StringSliceVar(&f.include, "include", nil, "relationships to include")
	flags.IntVar(&f.pageSize, "page-size", jsonapikit.DefaultPageSize, "resources per page")
	flags.StringVar(&f.pageIndex, "page-index", "", "starting offset, cursor or page number")
	flags.BoolVar(&f.all, "all", false, "follow next links until the last page")
	flags.IntVar(&f.maxPages, "max-pages", 0, "stop --all after this many pages (0 means no limit)")
	flags.BoolVar(&f.plain, "plain", false, "send filters as bare query keys instead of filter[...]")
	return cmd
}

// parseFilters turns name=value pairs into filter cases. Dotted names with
// the same prefix share one case.
func parseFilters(raw []string) ([]jsonapikit.FilterCase, error) {
	var (
		cases []jsonapikit.FilterCase
		index = map[string]int{}
	)
	for _, pair := range raw {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("filter %q: expected name=value", pair)
		}

		group, field, grouped := strings.Cut(name, ".")
		if !grouped {
			cases = append(cases, jsonapikit.Filter(name, value))
			continue
		}
		if field == "" {
			return nil, fmt.Errorf("filter %q: empty field after %q", pair, group+".")
		}
		if i, seen := index[group]; seen {
			cases[i].Fields = append(cases[i].Fields, jsonapikit.Field(field, value))
			continue
		}
		index[group] = len(cases)
		cases = append(cases, jsonapikit.FilterGroup(group, jsonapikit.Field(field, value)))
	}
	return cases, nil
}
