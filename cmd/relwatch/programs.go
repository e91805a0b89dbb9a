package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dikkadev/relwatch/pkg/github"
	"github.com/dikkadev/relwatch/pkg/programs"
	"github.com/dikkadev/relwatch/pkg/provider"
	"github.com/dikkadev/relwatch/pkg/render"
	"github.com/dikkadev/relwatch/pkg/selector"
)

func newAddProgramCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-program",
		Short: "Start watching a program",
	}
	cmd.PersistentFlags().String("name", "", "name of the program")
	cmd.PersistentFlags().Bool("dry-run", false, "show what would be done without making changes")

	githubCmd := &cobra.Command{
		Use:   "github",
		Short: "Watch the releases of a GitHub repository",
		Long: `Watch the releases of a GitHub repository.

The repository is given as owner/repo and is looked up on GitHub to confirm it
exists. Anything else is used as a search term and, when several repositories
match, you pick one from a list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			repository, _ := cmd.Flags().GetString("repository")
			nonInteractive, _ := cmd.Flags().GetBool("non-interactive")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			repo, err := a.resolveRepository(cmd, repository, !nonInteractive)
			if err != nil {
				return err
			}
			if name == "" {
				_, name, _ = github.SplitRepository(repo)
			}
			return a.addProgram(cmd, name, provider.GitHub(repo), dryRun)
		},
	}
	githubCmd.Flags().String("repository", "", "repository as owner/repo, or a search term")
	githubCmd.Flags().Bool("non-interactive", false, "fail instead of asking when the repository is ambiguous")
	githubCmd.MarkFlagRequired("repository")

	gitCmd := &cobra.Command{
		Use:   "git",
		Short: "Watch the tags of a git repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			url, _ := cmd.Flags().GetString("url")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if name == "" {
				return fmt.Errorf("--name is required for git programs")
			}
			return a.addProgram(cmd, name, provider.Git(url), dryRun)
		},
	}
	gitCmd.Flags().String("url", "", "clone URL of the repository")
	gitCmd.MarkFlagRequired("url")

	cmd.AddCommand(githubCmd, gitCmd)
	return cmd
}

// resolveRepository searches GitHub for input, an owner/repo or a search
// term, and returns the full name of the repository it settles on
func (a *app) resolveRepository(cmd *cobra.Command, input string, interactive bool) (string, error) {
	isTerm := a.isTerm
	if isTerm == nil {
		isTerm = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	}

	repo, err := selector.Resolve(cmd.Context(), a.githubClient(), input, interactive && isTerm())
	if err != nil {
		return "", err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Using repository %s\n", repo.FullName)
	return repo.FullName, nil
}

func (a *app) addProgram(cmd *cobra.Command, name string, cfg provider.Config, dryRun bool) error {
	m, err := a.manager(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	program, err := m.Add(cmd.Context(), name, cfg, programs.Options{DryRun: dryRun})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Current version: %s\n", program.CurrentVersion)
	return nil
}

func newRemoveProgramCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-program",
		Short: "Stop watching a program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			m, err := a.manager(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return m.Remove(cmd.Context(), name, programs.Options{DryRun: dryRun})
		},
	}
	cmd.Flags().String("name", "", "name of the program")
	cmd.Flags().Bool("dry-run", false, "show what would be done without making changes")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newListProgramsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-programs",
		Short: "List watched programs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			list, err := m.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No programs are being watched")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Programs(list))
			return nil
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Record that a program was updated to its latest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			all, _ := cmd.Flags().GetBool("all")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			opts := programs.Options{DryRun: dryRun}

			m, err := a.manager(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if all {
				_, err = m.ApplyAll(cmd.Context(), opts)
				return err
			}
			_, err = m.ApplyUpdate(cmd.Context(), name, opts)
			return err
		},
	}
	cmd.Flags().String("name", "", "name of the program")
	cmd.Flags().Bool("all", false, "update every program with a newer version")
	cmd.Flags().Bool("dry-run", false, "show what would be done without making changes")
	cmd.MarkFlagsMutuallyExclusive("name", "all")
	cmd.MarkFlagsOneRequired("name", "all")
	return cmd
}
