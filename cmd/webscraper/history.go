package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/webscraper/internal/api"
	"github.com/nao1215/webscraper/internal/database"
	"github.com/nao1215/webscraper/internal/output"
)

// NewHistoryCmd creates the history command.
// This command lists the crawl runs stored with --save-db.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List crawl runs stored in the database",
		Long: `History lists the crawl runs saved with "crawl --save-db" or
"rag --save-db", most recent first.

Examples:
  # List the last 20 runs
  webscraper history

  # Show the stored result of run 3
  webscraper history --show 3

  # Delete run 3 and its chunks
  webscraper history --delete 3`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Number of runs to list (0 lists all)")
	cmd.Flags().Int64("show", 0, "Print the stored result of this run as JSON")
	cmd.Flags().Int64("delete", 0, "Delete this run and its chunks")
	cmd.Flags().BoolP("json", "j", false, "List runs as JSON")
	cmd.Flags().String("db-dir", "", "Database directory (default from SCRAPER_DB_DIR)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	db, err := openDB(app, false)
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No crawl runs found in the database.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'webscraper crawl --save-db <url>' to store a crawl.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if id, _ := cmd.Flags().GetInt64("delete"); id > 0 {
		if err := db.DeleteRun(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run #%d\n", id)
		return nil
	}

	if id, _ := cmd.Flags().GetInt64("show"); id > 0 {
		run, err := db.GetRun(ctx, id)
		if err != nil {
			return err
		}
		_, err = output.NewJSONWriter(out, output.WithPrettyPrint()).Encode(run.Result)
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if runs == nil {
			runs = []database.Run{}
		}
		_, err := output.NewJSONWriter(out, output.WithPrettyPrint()).Encode(runs)
		return err
	}

	printRuns(out, runs)
	return nil
}

// printRuns writes runs as a fixed-width table.
func printRuns(out io.Writer, runs []database.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs found in the database.")
		fmt.Fprintln(out, "\nUse 'webscraper crawl --save-db <url>' to store a crawl.")
		return
	}

	fmt.Fprintf(out, "Crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-9s  %7s  %7s  %s\n", "ID", "Date", "Extractor", "Visited", "Records", "Start URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-9s  %7d  %7d  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Extractor,
			run.Stats.VisitedCount,
			run.Stats.DataCount,
			run.StartURL,
		)
	}

	fmt.Fprintln(out, "\nUse 'webscraper export <id>' to export the chunks of a rag run.")
}

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export the stored chunks of a run for a RAG framework",
		Long: `Export converts the chunks of a stored run into documents for a
retrieval framework:

  langchain   {"page_content": ..., "metadata": {...}}
  llamaindex  {"text": ..., "metadata": {...}}
  raw         the chunks as stored

Examples:
  webscraper export 3 --framework llamaindex -o docs.json`,
		Args: cobra.ExactArgs(1),
		RunE: runExportCmd,
	}

	cmd.Flags().String("framework", api.FrameworkLangChain, "Target framework: langchain, llamaindex or raw")
	cmd.Flags().StringP("output", "o", "", "Write the documents to this file instead of standard output")
	cmd.Flags().String("db-dir", "", "Database directory (default from SCRAPER_DB_DIR)")

	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid run id: %q", args[0])
	}

	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	db, err := openDB(app, false)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if _, err := db.GetRun(ctx, id); err != nil {
		return err
	}
	chunks, err := db.GetChunks(ctx, id)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: run #%d", api.ErrNoChunks, id)
	}

	framework, _ := cmd.Flags().GetString("framework")
	docs := api.ExportChunks(chunks, framework)

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := writeJSONFile(path, docs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d chunks to: %s\n", len(docs), path)
		return nil
	}

	_, err = output.NewJSONWriter(cmd.OutOrStdout(), output.WithPrettyPrint()).Encode(docs)
	return err
}
