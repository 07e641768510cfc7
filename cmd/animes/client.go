package main

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbweber/homelab/animes/internal/client"
	"github.com/jbweber/homelab/animes/internal/domain"
)

func init() {
	viper.SetDefault("client.server", "http://localhost:8080")
	viper.SetDefault("client.timeout", 10*time.Second)
	rootCmd.AddCommand(newClientCmd())
}

// newClientCmd builds the client command tree
func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Drive a running animes server",
	}
	cmd.PersistentFlags().String("server", "http://localhost:8080", "base URL of the animes server")
	bindFlags(cmd.PersistentFlags(), map[string]string{"client.server": "server"})

	var (
		page, size int
		sort       string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List one page of animes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.PageRequest{Page: page, Size: size}
			if sort != "" {
				sortBy, err := parseSortFlag(sort)
				if err != nil {
					return err
				}
				req.Sort = sortBy
			}
			return withClient(cmd, func(c *client.Client) (interface{}, error) {
				return c.List(cmd.Context(), req)
			})
		},
	}
	list.Flags().IntVar(&page, "page", 0, "zero-based page number")
	list.Flags().IntVar(&size, "size", 0, "page size (server default when 0)")
	list.Flags().StringVar(&sort, "sort", "", "sort as field[,asc|desc]")

	all := &cobra.Command{
		Use:   "all",
		Short: "List every anime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c *client.Client) (interface{}, error) {
				return c.ListAll(cmd.Context())
			})
		},
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one anime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, func(c *client.Client) (interface{}, error) {
				return c.Get(cmd.Context(), id)
			})
		},
	}

	find := &cobra.Command{
		Use:   "find NAME",
		Short: "List animes with exactly this name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c *client.Client) (interface{}, error) {
				return c.FindByName(cmd.Context(), args[0])
			})
		},
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Add an anime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c *client.Client) (interface{}, error) {
				return c.Create(cmd.Context(), args[0])
			})
		},
	}

	replace := &cobra.Command{
		Use:   "replace ID NAME",
		Short: "Rename an existing anime",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, func(c *client.Client) (interface{}, error) {
				return nil, c.Replace(cmd.Context(), id, args[1])
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Remove an anime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, func(c *client.Client) (interface{}, error) {
				return nil, c.Delete(cmd.Context(), id)
			})
		},
	}

	cmd.AddCommand(list, all, get, find, create, replace, del)
	return cmd
}

// withClient runs fn against the configured server and prints its result as JSON
func withClient(cmd *cobra.Command, fn func(c *client.Client) (interface{}, error)) error {
	c, err := client.New(viper.GetString("client.server"), client.WithTimeout(viper.GetDuration("client.timeout")))
	if err != nil {
		return err
	}

	result, err := fn(c)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid anime ID %q", raw)
	}
	return id, nil
}

func parseSortFlag(raw string) (domain.Sort, error) {
	field, dir, _ := strings.Cut(raw, ",")
	sort := domain.Sort{Field: field}
	switch dir {
	case "", "asc":
	case "desc":
		sort.Desc = true
	default:
		return domain.Sort{}, errors.Errorf("invalid sort direction %q", dir)
	}
	if err := sort.Validate(); err != nil {
		return domain.Sort{}, err
	}
	return sort, nil
}
