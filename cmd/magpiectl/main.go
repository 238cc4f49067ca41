package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/rooksworth/magpie/internal/adapter/storage/sqlite"
	"github.com/rooksworth/magpie/internal/core"
	"github.com/rooksworth/magpie/internal/token"
)

var (
	dbPath   string
	guildID  string
	afterTok string
	limit    int
)

var rootCmd = &cobra.Command{
	Use:          "magpiectl",
	Short:        "Inspect and export the magpie pin archive without touching the gateway",
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print archived pins, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, after, err := openWithCursor()
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.ListPins(context.Background(), guildID, after, limit)
		if err != nil {
			return err
		}
		for _, r := range recs {
			fmt.Printf("%s  %-7s  %-20s  %s\n",
				r.ArchivedAt.UTC().Format(time.RFC3339), r.Kind, r.AuthorName, preview(r.Content, 60))
		}
		if len(recs) > 0 {
			last := recs[len(recs)-1]
			fmt.Printf("\n%d records; resume token: %s\n", len(recs),
				token.Encode(core.Cursor{ArchivedAt: last.ArchivedAt, ID: last.ID}))
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write archived pins to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}

		st, after, err := openWithCursor()
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.ListPins(context.Background(), guildID, after, limit)
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()

		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(recs); err != nil {
			return err
		}

		fmt.Println("exported", len(recs), "records to", out)
		if len(recs) > 0 {
			last := recs[len(recs)-1]
			fmt.Println("resume token:", token.Encode(core.Cursor{ArchivedAt: last.ArchivedAt, ID: last.ID}))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print archive record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sqlite.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.CountPins(context.Background(), guildID)
		if err != nil {
			return err
		}
		if guildID != "" {
			fmt.Printf("%d records archived for guild %s\n", n, guildID)
		} else {
			fmt.Printf("%d records archived\n", n)
		}
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records older than a number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := cmd.Flags().GetInt("older-than")
		if err != nil {
			return err
		}
		if days <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		st, err := sqlite.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.PruneBefore(context.Background(), time.Now().AddDate(0, 0, -days))
		if err != nil {
			return err
		}
		fmt.Println("pruned", n, "records")
		return nil
	},
}

func openWithCursor() (*sqlite.Store, core.Cursor, error) {
	var after core.Cursor
	if afterTok != "" {
		c, err := token.Decode(afterTok)
		if err != nil {
			return nil, core.Cursor{}, fmt.Errorf("bad resume token: %w", err)
		}
		after = c
	}

	st, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, core.Cursor{}, err
	}
	return st, after, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func defaultDBPath() string {
	if p := os.Getenv("MAGPIE_DB"); p != "" {
		return p
	}
	if p, err := xdg.DataFile("magpie/magpie.db"); err == nil {
		return p
	}
	return "./magpie.db"
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "archive database path")
	rootCmd.PersistentFlags().StringVar(&guildID, "guild", "", "restrict to one guild ID")

	for _, c := range []*cobra.Command{listCmd, exportCmd} {
		c.Flags().StringVar(&afterTok, "after", "", "resume token from a previous run or /pin export")
		c.Flags().IntVar(&limit, "limit", 1000, "max records")
	}
	exportCmd.Flags().String("out", "magpie-export.json", "output JSON file path")
	pruneCmd.Flags().Int("older-than", 0, "delete records older than this many days")

	rootCmd.AddCommand(listCmd, exportCmd, statsCmd, pruneCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
