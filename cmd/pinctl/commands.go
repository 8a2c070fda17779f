package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"aprofinder/internal/app"
	"aprofinder/internal/exchange"
	"aprofinder/internal/points"
	"aprofinder/internal/version"

	"github.com/spf13/cobra"
)

// cli carries the environment opened for one command run.
type cli struct {
	configDir string
	env       *app.Env
	now       func() time.Time
}

func newRootCmd() *cobra.Command {
	c := &cli{now: time.Now}

	root := &cobra.Command{
		Use:           "pinctl",
		Short:         "Manage Aprofinder map points from the command line",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["noenv"] != "" {
				return nil
			}
			env, err := app.Bootstrap(app.EnvOptions{
				Name:      "pinctl",
				ConfigDir: c.configDir,
				Console:   cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			c.env = env
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configDir, "config", "", "directory holding aprofinder.cfg.json")

	root.AddCommand(
		c.listCmd(),
		c.searchCmd(),
		c.mapsCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.hashCmd(),
	)
	// PersistentPostRunE is skipped when RunE fails, so closing happens here.
	for _, sub := range root.Commands() {
		c.closeAfter(sub)
	}
	return root
}

func (c *cli) closeAfter(cmd *cobra.Command) {
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if c.env == nil {
				return
			}
			if cerr := c.env.Close(); err == nil {
				err = cerr
			}
			c.env = nil
		}()
		return run(cmd, args)
	}
}

func writePoints(w io.Writer, pts []points.Point) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMAP\tX\tY\tBUSINESS\tWORKER\tPROFESSION\tRATING")
	for _, p := range pts {
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.0f\t%s\t%s\t%s\t%s\n",
			p.ID, p.MapID, p.X, p.Y, p.BusinessName, p.WorkerName, p.Profession, p.Stars())
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) listCmd() *cobra.Command {
	var mapID string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pts := c.env.Points.All()
			if mapID != "" {
				pts = c.env.Points.Filter(mapID)
			}
			if asJSON {
				if pts == nil {
					pts = []points.Point{}
				}
				return writeJSON(cmd.OutOrStdout(), pts)
			}
			return writePoints(cmd.OutOrStdout(), pts)
		},
	}
	cmd.Flags().StringVar(&mapID, "map", "", "only points on this map id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// mapIDs returns every map id that has points, sorted.
func (c *cli) mapIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range c.env.Points.All() {
		if !seen[p.MapID] {
			seen[p.MapID] = true
			ids = append(ids, p.MapID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (c *cli) searchCmd() *cobra.Command {
	var mapID string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search points by worker, business, profession or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			ids := []string{mapID}
			if mapID == "" {
				ids = c.mapIDs()
			}
			var found []points.Point
			for _, id := range ids {
				found = append(found, c.env.Points.Search(id, query)...)
			}

			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "Sin resultados")
				return nil
			}
			for _, p := range found {
				fmt.Fprintf(out, "%s  %s\n  %s · %s (%s)\n", p.BusinessName, p.Stars(), p.WorkerName, p.Profession, p.MapID)
				if ex := p.Excerpt(100); ex != "" {
					fmt.Fprintf(out, "  %s\n", ex)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mapID, "map", "", "search one map id only")
	return cmd
}

func (c *cli) mapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maps",
		Short: "List configured maps with their point counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPOINTS\tSOURCE")
			for _, m := range c.env.Catalog().All() {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", m.Label(), len(c.env.Points.Filter(m.ID)), m.ID)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every point to an exchange file (\"-\" for stdout)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := c.now()
			path := exchange.FileName(now)
			if len(args) == 1 {
				path = args[0]
			}
			pts := c.env.Points.All()
			if path == "-" {
				return exchange.Export(cmd.OutOrStdout(), pts, now)
			}
			if err := exchange.ExportFile(path, pts, now); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d puntos exportados a %s\n", len(pts), path)
			return nil
		},
	}
}

// promptConfirm asks on in and accepts only an explicit yes.
func promptConfirm(in io.Reader, out io.Writer) exchange.Confirm {
	return func(count int) bool {
		fmt.Fprintf(out, "¿Reemplazar todos los puntos actuales con %d puntos importados? [s/N] ", count)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "s", "si", "sí", "y", "yes":
			return true
		}
		return false
	}
}

func (c *cli) importCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace every point with the contents of an exchange file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var confirm exchange.Confirm
			if !yes {
				confirm = promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
			}

			var (
				n   int
				err error
			)
			if args[0] == "-" {
				n, err = exchange.Import(cmd.InOrStdin(), c.env.Points, confirm)
			} else {
				n, err = exchange.ImportFile(args[0], c.env.Points, confirm)
			}
			switch {
			case errors.Is(err, exchange.ErrCancelled):
				fmt.Fprintln(cmd.OutOrStdout(), "Importación cancelada")
				return nil
			case errors.Is(err, os.ErrNotExist):
				return fmt.Errorf("no existe el archivo %s", args[0])
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d puntos importados correctamente\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "replace without asking")
	return cmd
}

func (c *cli) hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "hash-passcode <passcode>",
		Short:       "Print a bcrypt hash for the admin.passcodeHash setting",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"noenv": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := app.HashPasscode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
