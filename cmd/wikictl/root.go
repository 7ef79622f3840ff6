package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wikifun/wikifun/backend/go-services/internal/bootstrap"
	"github.com/wikifun/wikifun/backend/go-services/internal/models"
	"github.com/wikifun/wikifun/backend/go-services/internal/pages"
	"github.com/wikifun/wikifun/backend/go-services/internal/query"
)

type opener func(ctx context.Context) (*bootstrap.Engines, error)

type cli struct {
	open    opener
	timeout time.Duration
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}
	root := &cobra.Command{
		Use:          "wikictl",
		Short:        "Inspect and edit wiki pages and accounts",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "overall deadline for the command")

	pagesCmd := &cobra.Command{Use: "pages", Short: "Manage wiki pages"}
	pagesCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "list pages with their vote counts",
			Args:  cobra.NoArgs,
			RunE: c.run(func(ctx context.Context, e *bootstrap.Engines, _ []string) (interface{}, error) {
				return e.Pages.ListPageNames(ctx)
			}),
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "print a page document",
			Args:  cobra.ExactArgs(1),
			RunE: c.run(func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error) {
				return e.Pages.FetchPage(ctx, args[0])
			}),
		},
		c.createPageCmd(),
		c.voteCmd(),
	)

	searchCmd := &cobra.Command{Use: "search", Short: "Search pages"}
	searchCmd.AddCommand(
		&cobra.Command{
			Use:   "title <text>",
			Short: "case-insensitive substring match on page names",
			Args:  cobra.ExactArgs(1),
			RunE: c.run(func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error) {
				return e.Query.SearchByTitle(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "content <text>",
			Short: "case-insensitive substring match on page content",
			Args:  cobra.ExactArgs(1),
			RunE: c.run(func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error) {
				return e.Query.SearchByContent(ctx, args[0])
			}),
		},
	)

	sortCmd := &cobra.Command{
		Use:   "sort <ascending_alpha|descending_alpha|most_recent_first>",
		Short: "list page names in the given order",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error) {
			return e.Query.SortPages(ctx, query.Order(args[0]))
		}),
	}

	yearsCmd := &cobra.Command{
		Use:   "years <yyyy>",
		Short: "list pages created in a year",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error) {
			return e.Query.FilterByYear(ctx, args[0])
		}),
	}

	accountsCmd := &cobra.Command{Use: "accounts", Short: "Manage user accounts"}
	accountsCmd.AddCommand(
		c.createAccountCmd(),
		&cobra.Command{
			Use:   "show <username>",
			Short: "print a public profile",
			Args:  cobra.ExactArgs(1),
			RunE: c.run(func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error) {
				doc, err := e.Accounts.GetAccount(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return doc.Public(args[0]), nil
			}),
		},
	)

	root.AddCommand(pagesCmd, searchCmd, sortCmd, yearsCmd, accountsCmd)
	return root
}

func (c *cli) createPageCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "create or replace a page; content is read from --file or stdin",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "content file, - for stdin")
	cmd.RunE = c.run(func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error) {
		content, err := readContent(cmd.InOrStdin(), file)
		if err != nil {
			return nil, err
		}
		return e.Pages.CreatePage(ctx, args[0], string(content))
	})
	return cmd
}

func (c *cli) voteCmd() *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "vote <name> <upvote|downvote>",
		Short: "toggle a vote on behalf of a user",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&as, "as", "", "username casting the vote")
	_ = cmd.MarkFlagRequired("as")
	cmd.RunE = c.run(func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error) {
		return e.Pages.RecordVote(ctx, pages.Direction(args[1]), models.Authenticated(as), args[0])
	})
	return cmd
}

func (c *cli) createAccountCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "register an account",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("password")
	cmd.RunE = c.run(func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error) {
		doc, err := e.Accounts.CreateAccount(ctx, args[0], password)
		if err != nil {
			return nil, err
		}
		return doc.Public(args[0]), nil
	})
	return cmd
}

// run opens the engines, executes fn and prints its result as indented JSON.
func (c *cli) run(fn func(ctx context.Context, e *bootstrap.Engines, args []string) (interface{}, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
		defer cancel()

		e, err := c.open(ctx)
		if err != nil {
			return fmt.Errorf("open engines: %w", err)
		}
		defer func() {
			if cerr := e.Close(context.Background()); cerr != nil && err == nil {
				err = cerr
			}
		}()

		out, err := fn(ctx, e, args)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func readContent(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}
