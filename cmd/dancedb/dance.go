package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dancedb/dancedb/internal/catalog"
)

// danceFields holds the curation flags shared by add, edit and list.
type danceFields struct {
	name          string
	choreographer string
	releaseDate   string
	level         string
	count         string
	wall          string
	tag           string
	restart       string
	url           string
	known         string
	category      string
	priority      string
	action        string
	notes         string
}

func (f *danceFields) register(cmd *cobra.Command, withCuration bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "dance name")
	fl.StringVar(&f.choreographer, "choreographer", "", "choreographer(s)")
	fl.StringVar(&f.releaseDate, "release-date", "", "release date")
	fl.StringVar(&f.level, "level", "", "level")
	fl.StringVar(&f.count, "count", "", "count")
	fl.StringVar(&f.wall, "wall", "", "wall")
	fl.StringVar(&f.tag, "tag", "", "tag notes")
	fl.StringVar(&f.restart, "restart", "", "restart notes")
	fl.StringVar(&f.url, "url", "", "stepsheet URL")
	fl.StringVar(&f.notes, "notes", "", "free-form notes")
	if withCuration {
		f.registerCuration(cmd)
	}
}

func (f *danceFields) registerCuration(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.known, "known", "", `known status: Yes, Kinda, No, "On the Floor"`)
	fl.StringVar(&f.category, "category", "", `category: "Learn Next", "Learn Soon", "Learn Later", Uncategorized`)
	fl.StringVar(&f.priority, "priority", "", "priority: High, Medium, Low")
	fl.StringVar(&f.action, "action", "", "action: Learn, Practice")
}

// apply copies every flag the user set onto d.
func (f *danceFields) apply(cmd *cobra.Command, d *catalog.Dance) {
	set := func(flag string, dst *string, v string) {
		if cmd.Flags().Changed(flag) {
			*dst = v
		}
	}
	set("name", &d.Name, f.name)
	set("choreographer", &d.Choreographer, f.choreographer)
	set("release-date", &d.ReleaseDate, f.releaseDate)
	set("level", &d.Level, f.level)
	set("count", &d.Count, f.count)
	set("wall", &d.Wall, f.wall)
	set("tag", &d.Tag, f.tag)
	set("restart", &d.Restart, f.restart)
	set("url", &d.StepsheetURL, f.url)
	set("notes", &d.Notes, f.notes)
	if cmd.Flags().Changed("known") {
		d.KnownStatus = catalog.KnownStatus(f.known)
	}
	if cmd.Flags().Changed("category") {
		d.Category = catalog.Category(f.category)
	}
	if cmd.Flags().Changed("priority") {
		d.Priority = catalog.Priority(f.priority)
	}
	if cmd.Flags().Changed("action") {
		d.Action = catalog.Action(f.action)
	}
}

// danceCmd creates the "dance" command group.
func danceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dance",
		Short: "Manage catalog dances",
	}

	cmd.AddCommand(danceListCmd())
	cmd.AddCommand(danceShowCmd())
	cmd.AddCommand(danceFindCmd())
	cmd.AddCommand(danceAddCmd())
	cmd.AddCommand(danceEditCmd())
	cmd.AddCommand(danceDeleteCmd())

	return cmd
}

// withStore opens the catalog for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *catalog.Store) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func danceListCmd() *cobra.Command {
	var (
		f      danceFields
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dances, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store *catalog.Store) error {
				dances, err := store.ListDances(ctx, catalog.ListFilter{
					KnownStatus: catalog.KnownStatus(f.known),
					Category:    catalog.Category(f.category),
					Priority:    catalog.Priority(f.priority),
					Action:      catalog.Action(f.action),
					Name:        f.name,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), dances)
				}
				return printDanceTable(cmd.OutOrStdout(), dances)
			})
		},
	}
	cmd.Flags().StringVar(&f.name, "name", "", "name contains (case-insensitive)")
	f.registerCuration(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func danceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one dance with its songs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, store *catalog.Store) error {
				d, err := store.GetDance(ctx, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), d)
			})
		},
	}
}

func danceFindCmd() *cobra.Command {
	var name, choreographer string
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print the id of a dance by name and choreographer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store *catalog.Store) error {
				id, err := store.DanceIDByNameAndChoreographer(ctx, name, choreographer)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "dance name")
	cmd.Flags().StringVar(&choreographer, "choreographer", "", "choreographer string as stored")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func danceAddCmd() *cobra.Command {
	var (
		f     danceFields
		songs []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a dance by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := &catalog.Dance{}
			f.apply(cmd, d)
			return withStore(cmd, func(ctx context.Context, store *catalog.Store) error {
				err := store.RunInTx(ctx, func(ctx context.Context, repo *catalog.Repo) error {
					if err := repo.AddDance(ctx, d); err != nil {
						return err
					}
					for _, title := range songs {
						if title = strings.TrimSpace(title); title == "" {
							continue
						}
						song, _, err := repo.FindOrCreateSong(ctx, title, catalog.SongMatchExact)
						if err != nil {
							return err
						}
						if err := repo.LinkDanceSong(ctx, d.ID, song.ID); err != nil {
							return err
						}
					}
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added dance %d: %s\n", d.ID, d.Name)
				return nil
			})
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringArrayVar(&songs, "song", nil, "song title (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func danceEditCmd() *cobra.Command {
	var f danceFields
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a dance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, store *catalog.Store) error {
				d, err := store.GetDance(ctx, id)
				if err != nil {
					return err
				}
				f.apply(cmd, d)
				if err := store.UpdateDance(ctx, d); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated dance %d: %s\n", d.ID, d.Name)
				return nil
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func danceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a dance and its song links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, store *catalog.Store) error {
				if err := store.DeleteDance(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted dance %d\n", id)
				return nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid dance id %q", s)
	}
	return id, nil
}

func printDanceTable(w io.Writer, dances []catalog.Dance) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCHOREOGRAPHER\tLEVEL\tCOUNT\tWALL\tKNOWN\tCATEGORY\tPRIORITY\tSONGS")
	for _, d := range dances {
		titles := make([]string, 0, len(d.Songs))
		for _, s := range d.Songs {
			titles = append(titles, s.Title)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, d.Choreographer, d.Level, d.Count, d.Wall,
			d.KnownStatus, d.Category, d.Priority, strings.Join(titles, ", "))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
