package cmd

import (
	"context"
	"io"
)

// ActivityCmd represents the activity command and its subcommands
type ActivityCmd struct {
	Start   ActivityStartCmd   `cmd:"" help:"Start reading a book"`
	Finish  ActivityFinishCmd  `cmd:"" help:"Mark an activity finished"`
	Abandon ActivityAbandonCmd `cmd:"" help:"Mark an activity abandoned"`
}

// ActivityStartCmd represents the activity start command
type ActivityStartCmd struct {
	BookID int64 `arg:"" name:"book-id" help:"Id of the book"`
}

// ActivityFinishCmd represents the activity finish command
type ActivityFinishCmd struct {
	ID int64 `arg:"" name:"id" help:"Id of the activity"`
}

// ActivityAbandonCmd represents the activity abandon command
type ActivityAbandonCmd struct {
	ID int64 `arg:"" name:"id" help:"Id of the activity"`
}

func (c *ActivityStartCmd) Run(ctx context.Context, app *App, out io.Writer) error {
	a, err := app.activities.Start(ctx, c.BookID)
	if err != nil {
		return err
	}
	return writeYAML(out, a)
}

func (c *ActivityFinishCmd) Run(ctx context.Context, app *App, out io.Writer) error {
	a, err := app.activities.Finish(ctx, c.ID)
	if err != nil {
		return err
	}
	return writeYAML(out, a)
}

func (c *ActivityAbandonCmd) Run(ctx context.Context, app *App, out io.Writer) error {
	a, err := app.activities.Abandon(ctx, c.ID)
	if err != nil {
		return err
	}
	return writeYAML(out, a)
}
