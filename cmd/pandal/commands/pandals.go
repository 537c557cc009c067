package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/pandal-client/internal/app"
	"github.com/florianilch/pandal-client/internal/pandals"
)

func pandalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "pandals",
		Usage: "list and create pandals",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list pandals, optionally near a point",
				Flags: []cli.Flag{
					&cli.FloatFlag{Name: "lng", Usage: "longitude of the search center"},
					&cli.FloatFlag{Name: "lat", Usage: "latitude of the search center"},
					&cli.FloatFlag{Name: "radius", Usage: "search radius in meters", Value: pandals.DefaultRadius},
				},
				Action: withApp(pandalsListAction),
			},
			{
				Name:  "create",
				Usage: "create a pandal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "pandal name", Required: true},
					&cli.StringFlag{Name: "description", Usage: "description"},
					&cli.StringFlag{Name: "area", Usage: "neighbourhood"},
					&cli.StringFlag{Name: "theme", Usage: "theme of the year"},
					&cli.FloatFlag{Name: "lng", Usage: "longitude"},
					&cli.FloatFlag{Name: "lat", Usage: "latitude"},
					&cli.StringSliceFlag{Name: "image", Usage: "image URL (repeatable)"},
				},
				Action: withApp(pandalsCreateAction),
			},
		},
	}
}

// point reads --lng/--lat. Both or neither must be set.
func point(cmd *cli.Command) (lng, lat float64, ok bool, err error) {
	lngSet, latSet := cmd.IsSet("lng"), cmd.IsSet("lat")
	if lngSet != latSet {
		return 0, 0, false, errors.New("--lng and --lat must be given together")
	}
	return cmd.Float("lng"), cmd.Float("lat"), lngSet, nil
}

func pandalsListAction(ctx context.Context, cmd *cli.Command, a *app.App) error {
	lng, lat, ok, err := point(cmd)
	if err != nil {
		return err
	}

	var near *pandals.Near
	if ok {
		near = &pandals.Near{Lng: lng, Lat: lat, Radius: cmd.Float("radius")}
	}

	list, err := a.Pandals().List(ctx, near)
	if err != nil {
		return fmt.Errorf("listing pandals: %w", err)
	}
	return printJSON(cmd, list)
}

func pandalsCreateAction(ctx context.Context, cmd *cli.Command, a *app.App) error {
	lng, lat, ok, err := point(cmd)
	if err != nil {
		return err
	}

	p := pandals.Pandal{
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		Area:        cmd.String("area"),
		Theme:       cmd.String("theme"),
		Images:      cmd.StringSlice("image"),
	}
	if ok {
		p.Location = pandals.NewPoint(lng, lat)
	}

	id, err := a.Pandals().Create(ctx, p)
	if err != nil {
		return fmt.Errorf("creating pandal: %w", err)
	}
	return printJSON(cmd, map[string]string{"id": id})
}
