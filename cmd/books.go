package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	apperrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/isbn"
	"gopkg.in/yaml.v3"
)

// AddCmd represents the add command
type AddCmd struct {
	ISBN string `arg:"" name:"isbn" help:"ISBN-10 or ISBN-13, hyphens allowed"`
}

// UpdateCoversCmd represents the update-covers command
type UpdateCoversCmd struct {
	Refresh bool `help:"Refresh book metadata from the sources before fetching the cover"`
}

// PingCmd represents the ping command
type PingCmd struct{}

func (c *AddCmd) Run(ctx context.Context, app *App, out io.Writer) error {
	if !isbn.IsValid(c.ISBN) {
		return apperrors.NewValidationError("isbn", fmt.Sprintf("%q is not a valid ISBN", c.ISBN))
	}

	id, err := app.library.AddOrUpdateBook(ctx, c.ISBN)
	if err != nil {
		return err
	}

	slog.Info("Book saved", "isbn", isbn.Normalize(c.ISBN), "id", id)
	_, err = fmt.Fprintln(out, id)
	return err
}

func (c *UpdateCoversCmd) Run(ctx context.Context, app *App, out io.Writer) error {
	summary, err := app.library.UpdateMissingCovers(ctx, c.Refresh)
	if encErr := writeYAML(out, summary); encErr != nil {
		return errors.Join(err, encErr)
	}
	return err
}

func (c *PingCmd) Run(ctx context.Context, app *App, out io.Writer) error {
	status := app.library.Ping(ctx)

	var failed []error
	for _, name := range app.library.Sources() {
		if err := status[name]; err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", name, err))
			if _, err := fmt.Fprintf(out, "%s: %v\n", name, err); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(out, "%s: ok\n", name); err != nil {
			return err
		}
	}
	return errors.Join(failed...)
}

func writeYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
