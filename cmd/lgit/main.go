// cmd/lgit/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lgit/internal/commit"
	lgiterr "lgit/internal/errors"
	"lgit/internal/logging"
	"lgit/internal/repo"
	"lgit/internal/status"
	"lgit/internal/watch"
	"lgit/internal/worktree"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "lgit",
	Short: "lgit is a local version control system",
	Long: `lgit tracks snapshots of files in a working directory. It keeps a
staging index and an immutable commit history, with no branching,
merging, or remotes.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize a repository in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			logger, err := newLogger()
			if err != nil {
				return err
			}

			already, err := repo.Init(dir, logger.WithRepo(dir))
			if err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}

			if already {
				fmt.Println("Git repository already initialized.")
			} else {
				fmt.Printf("Initialized empty Git repository in %s/\n", filepath.Join(dir, repo.Dir))
			}
			return nil
		},
	}

	var configAuthor string
	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Set the author used for commits",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			if err := r.SetAuthor(configAuthor); err != nil {
				return fmt.Errorf("setting author: %w", err)
			}
			return nil
		},
	}
	configCmd.Flags().StringVar(&configAuthor, "author", "", "Author name")
	configCmd.MarkFlagRequired("author")

	var addCmd = &cobra.Command{
		Use:   "add [paths...]",
		Short: "Add file contents to the index",
		Long:  `Stages the given files. Use '.' to add every file in the working tree.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			paths, err := worktree.ResolveAddArgs(r.Root, cwd, args)
			if err != nil {
				return err
			}

			for _, path := range paths {
				abs := filepath.Join(r.Root, path)
				content, err := os.ReadFile(abs)
				if err != nil {
					return lgiterr.IO(fmt.Sprintf("reading %s", path), err)
				}

				digest, err := r.Objects.Put(content)
				if err != nil {
					return fmt.Errorf("storing %s: %w", path, err)
				}

				info, err := os.Stat(abs)
				if err != nil {
					return lgiterr.IO(fmt.Sprintf("stating %s", path), err)
				}
				if err := r.Index.Upsert(path, digest, info.ModTime()); err != nil {
					return fmt.Errorf("staging %s: %w", path, err)
				}
			}
			return nil
		},
	}

	var rmCmd = &cobra.Command{
		Use:   "rm [files...]",
		Short: "Remove files from the working tree and the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			for _, arg := range args {
				abs := worktree.Resolve(cwd, arg)
				info, err := os.Stat(abs)
				if err != nil {
					return lgiterr.NotFound(fmt.Sprintf("fatal: pathspec '%s' did not match any files", arg))
				}
				if info.IsDir() {
					return lgiterr.InvalidTarget(fmt.Sprintf("fatal: not removing '%s' recursively", arg))
				}

				rel, err := filepath.Rel(r.Root, abs)
				if err != nil {
					return lgiterr.IO("resolving path", err)
				}

				removed, err := r.Index.Remove(rel)
				if err != nil {
					return fmt.Errorf("removing %s from index: %w", arg, err)
				}
				if !removed {
					return lgiterr.NotFound(fmt.Sprintf("fatal: pathspec '%s' did not match any files", arg))
				}
				if err := os.Remove(abs); err != nil {
					return lgiterr.IO(fmt.Sprintf("deleting %s", arg), err)
				}
			}
			return nil
		},
	}

	var commitMessage string
	var commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Record the changes currently staged",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			author, err := r.Author()
			if err != nil {
				return fmt.Errorf("reading author: %w", err)
			}
			if author == "" {
				fmt.Println("***Please tell me who you are.")
				fmt.Println()
				fmt.Println("Run")
				fmt.Println()
				fmt.Println("  lgit config --author \"Author Name\"")
				fmt.Println()
				fmt.Println("to set a user for authoring the commits.")
			}

			manifest, err := r.Index.CommitAdvance()
			if err != nil {
				return fmt.Errorf("advancing index: %w", err)
			}

			id, err := r.Commits.Create(author, commitMessage, manifest, time.Now())
			if err != nil {
				return fmt.Errorf("creating commit: %w", err)
			}

			fmt.Printf("[%s] %s\n", id, commitMessage)
			return nil
		},
	}
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "Commit message")
	commitCmd.MarkFlagRequired("message")

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			fmt.Println("On branch master")
			ids, err := r.Commits.List()
			if err != nil {
				return fmt.Errorf("listing commits: %w", err)
			}
			if len(ids) == 0 {
				fmt.Println("\nNo commits yet")
			}
			fmt.Println()

			paths, err := worktree.ListFiles(r.Root)
			if err != nil {
				return fmt.Errorf("walking working tree: %w", err)
			}

			report, err := status.Collect(r.Index, paths, r.Logger)
			if err != nil {
				return fmt.Errorf("collecting status: %w", err)
			}

			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()
			blue := color.New(color.FgBlue).SprintFunc()

			if len(report.Staged) > 0 {
				fmt.Println("Changes to be committed:")
				fmt.Println("  (use \"lgit reset HEAD <file>...\" to unstage)")
				fmt.Println()
				for _, path := range report.Staged {
					fmt.Printf("\tmodified: %s\n", green(path))
				}
				fmt.Println()
			}

			if len(report.Unstaged) > 0 {
				fmt.Println("Changes not staged for commit:")
				fmt.Println("  (use \"lgit add <file>...\" to update what will be committed)")
				fmt.Println()
				for _, path := range report.Unstaged {
					fmt.Printf("\tmodified: %s\n", red(path))
				}
				fmt.Println()
			}

			if len(report.Untracked) > 0 {
				fmt.Println("Untracked files:")
				fmt.Println("  (use \"lgit add <file>...\" to include in what will be committed)")
				fmt.Println()
				for _, path := range report.Untracked {
					fmt.Printf("\t%s\n", blue(path))
				}
				fmt.Println()
			}

			return nil
		},
	}

	var lsFilesCmd = &cobra.Command{
		Use:   "ls-files",
		Short: "List every tracked path",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			entries, err := r.Index.Entries()
			if err != nil {
				return fmt.Errorf("reading index: %w", err)
			}

			paths := make([]string, 0, len(entries))
			for _, e := range entries {
				paths = append(paths, e.Path)
			}
			sort.Strings(paths)
			for _, path := range paths {
				fmt.Println(path)
			}
			return nil
		},
	}

	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "Show the commit history",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			ids, err := r.Commits.List()
			if err != nil {
				return fmt.Errorf("listing commits: %w", err)
			}
			sort.Slice(ids, func(i, j int) bool {
				a, _ := strconv.ParseInt(ids[i], 10, 64)
				b, _ := strconv.ParseInt(ids[j], 10, 64)
				return a > b
			})

			yellow := color.New(color.FgYellow).SprintFunc()
			for _, id := range ids {
				c, err := r.Commits.Get(id)
				if err != nil {
					return fmt.Errorf("reading commit %s: %w", id, err)
				}
				fmt.Println(yellow("commit " + id))
				fmt.Println("Author: " + c.Author)
				fmt.Println("Date: " + commit.Date(id))
				fmt.Println()
				fmt.Printf("    %s\n\n", c.Message)
			}
			return nil
		},
	}

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Watch the working tree and report classification changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}

			w, err := watch.New(r, r.Logger)
			if err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			defer w.Close()

			fmt.Println("Watching for changes (ctrl-c to stop)")
			for ev := range w.Events {
				fmt.Printf("%s  %s\n", ev.State, ev.Path)
			}
			return nil
		},
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lsFilesCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(watchCmd)
}

func newLogger() (*logging.Logger, error) {
	logger, err := logging.NewLogger(logLevel)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, nil
}

func openRepo() (*repo.Repo, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	r, err := repo.Open(cwd, logger.WithRepo(cwd))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
