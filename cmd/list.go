package cmd

import (
	"context"
	"io"

	"github.com/lepinkainen/bookshelf/internal/terms"
)

// ListCmd represents the list command and its subcommands
type ListCmd struct {
	Books ListBooksCmd `cmd:"" help:"List books ordered by id"`
	Terms ListTermsCmd `cmd:"" help:"List authors, publishers and statuses"`
}

// ListBooksCmd represents the list books command
type ListBooksCmd struct {
	Offset int `help:"Number of records to skip" default:"0"`
	Limit  int `help:"Maximum number of records to return (at most 100)" default:"20"`
}

// ListTermsCmd represents the list terms command
type ListTermsCmd struct {
	Offset   int    `help:"Number of records to skip" default:"0"`
	Limit    int    `help:"Maximum number of records to return (at most 100)" default:"20"`
	Category string `help:"Only list terms of this category (author, publisher or status)" enum:"author,publisher,status,all" default:"all"`
}

func (c *ListBooksCmd) Run(ctx context.Context, app *App, out io.Writer) error {
	page, err := app.store.ListBooks(ctx, c.Offset, c.Limit)
	if err != nil {
		return err
	}
	return writeYAML(out, page)
}

func (c *ListTermsCmd) Run(ctx context.Context, app *App, out io.Writer) error {
	category := terms.Category(c.Category)
	if c.Category == "all" {
		category = ""
	}

	page, err := app.store.ListTerms(ctx, category, c.Offset, c.Limit)
	if err != nil {
		return err
	}
	return writeYAML(out, page)
}
