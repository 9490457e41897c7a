package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	bumpkit "github.com/bcomnes/bumpkit/pkg"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var debug bool

// flagKeys maps command line flags to configuration keys. A flag that is set
// wins over the matching INPUT_* environment variable.
var flagKeys = map[string]string{
	"platform":          bumpkit.KeyTargetPlatform,
	"bump-targets":      bumpkit.KeyBumpTargets,
	"sync-files":        bumpkit.KeySyncFiles,
	"changelog":         bumpkit.KeyChangelog,
	"changelog-path":    bumpkit.KeyChangelogPath,
	"commit":            bumpkit.KeyCommit,
	"tag":               bumpkit.KeyGitTag,
	"push":              bumpkit.KeyPush,
	"create-pr":         bumpkit.KeyCreatePR,
	"branch-prefix":     bumpkit.KeyBranchPrefix,
	"base-branch":       bumpkit.KeyBaseBranch,
	"commit-message":    bumpkit.KeyCommitMessage,
	"remote":            bumpkit.KeyRemote,
	"repository":        bumpkit.KeyGitHubRepository,
	"working-directory": bumpkit.KeyWorkingDirectory,
	"dry-run":           bumpkit.KeyDryRun,
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bumpkit [release-type]",
		Short: "Bump the version of a project and cut a release",
		Long: `Detects the project ecosystem, bumps the version in its manifest, keeps
extra files and the changelog in step, then commits, tags, pushes and opens a
pull request as configured.

Release types: major, minor, patch, premajor, preminor, prepatch, prerelease.
Every flag can also be given as an INPUT_<KEY> environment variable, which is
how GitHub Actions passes action inputs.`,
		Example: `  bumpkit minor
  bumpkit --tag --push patch
  bumpkit --platform custom --bump-targets '[{"path":"VERSION.txt","variable":"APP_VERSION"}]' patch
  bumpkit --dry-run major`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				v.Set(bumpkit.KeyReleaseType, args[0])
			}
			return runRelease(cmd.Context(), cmd.OutOrStdout(), v)
		},
		SilenceUsage: true,
		Version:      Version,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&debug, "debug", false, "enable debug level logging")
	flags.StringP("working-directory", "C", ".", "directory containing the project manifest")
	flags.String("platform", "", "ecosystem to bump instead of auto-detecting (node, python, rust, go, docker, php, deno, custom)")
	flags.String("bump-targets", "", `JSON list of {"path", "variable"} pairs for the custom platform`)

	flags = rootCmd.Flags()
	flags.String("sync-files", "", "comma separated files whose version string follows the new version")
	flags.Bool("changelog", true, "prepend a section to the changelog")
	flags.String("changelog-path", bumpkit.DefaultChangelogPath, "changelog file")
	flags.Bool("commit", true, "commit the changed files")
	flags.Bool("tag", false, "tag the release commit as v<version>")
	flags.Bool("push", false, "push the release commit and tag")
	flags.Bool("create-pr", false, "push a release branch and open a pull request")
	flags.String("branch-prefix", "release/v", "prefix of the release branch")
	flags.String("base-branch", "main", "base branch of the pull request")
	flags.String("commit-message", "chore: bump version to {version}", "commit message; {version} is replaced")
	flags.String("remote", "origin", "git remote to push to")
	flags.String("repository", "", "GitHub repository as owner/name")
	flags.Bool("dry-run", false, "report the next version without changing anything")

	for name, key := range flagKeys {
		f := rootCmd.PersistentFlags().Lookup(name)
		if f == nil {
			f = rootCmd.Flags().Lookup(name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			log.Fatalf("binding flag %s: %v", name, err)
		}
	}

	rootCmd.AddCommand(newDetectCmd(v), newCurrentCmd(v))
	return rootCmd
}

func newDetectCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Print the detected platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, svc, err := loadService(v)
			if err != nil {
				return err
			}
			platform, err := svc.ResolvePlatform(cfg.TargetPlatform)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), platform)
			return nil
		},
	}
}

func newCurrentCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the current version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, svc, err := loadService(v)
			if err != nil {
				return err
			}
			platform, err := svc.ResolvePlatform(cfg.TargetPlatform)
			if err != nil {
				return err
			}
			current, err := svc.CurrentVersion(platform, cfg.BumpTargets)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), current)
			return nil
		},
	}
}

func loadService(v *viper.Viper) (*bumpkit.Config, *bumpkit.UpdaterService, error) {
	cfg, err := bumpkit.LoadConfig(v)
	if err != nil {
		return nil, nil, err
	}
	files := bumpkit.NewOSFileAccess(cfg.WorkingDirectory)
	return cfg, bumpkit.NewUpdaterService(bumpkit.DefaultRegistry(files), files), nil
}

func runRelease(ctx context.Context, out io.Writer, v *viper.Viper) error {
	cfg, err := bumpkit.LoadConfig(v)
	if err != nil {
		return err
	}
	res, err := bumpkit.Run(ctx, cfg, bumpkit.Dependencies{})
	if err != nil {
		return err
	}
	printSummary(out, cfg, res)
	return bumpkit.WriteActionOutputs(afero.NewOsFs(), os.Getenv("GITHUB_OUTPUT"), res.Outputs())
}

func printSummary(out io.Writer, cfg *bumpkit.Config, res *bumpkit.Result) {
	if cfg.DryRun {
		fmt.Fprintln(out, "Dry run complete, no files were modified.")
	} else {
		fmt.Fprintln(out, "Version bump successful!")
	}
	fmt.Fprintf(out, "Platform:    %s\n", res.Platform)
	fmt.Fprintf(out, "Old Version: %s\n", res.OldVersion)
	fmt.Fprintf(out, "New Version: %s\n", res.NewVersion)
	fmt.Fprintf(out, "Bump Type:   %s\n", res.BumpKind)
	if res.Branch != "" {
		fmt.Fprintf(out, "Branch:      %s\n", res.Branch)
	}
	if res.Tag != "" {
		fmt.Fprintf(out, "Tag:         %s\n", res.Tag)
	}
	if res.PullRequestURL != "" {
		fmt.Fprintf(out, "Pull Request: %s\n", res.PullRequestURL)
	}
	if len(res.UpdatedFiles) > 0 {
		fmt.Fprintln(out, "Files updated:")
		for _, f := range res.UpdatedFiles {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}
}

// hint adds a remedy for the failures users can fix themselves.
func hint(err error) string {
	var (
		cfgErr    *bumpkit.ConfigError
		detectErr *bumpkit.PlatformDetectionError
		notFound  *bumpkit.FileNotFoundError
		invalid   *bumpkit.InvalidManifestError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "check the action inputs or flags"
	case errors.As(err, &detectErr):
		return "pass --platform or set INPUT_TARGET_PLATFORM"
	case errors.As(err, &notFound):
		return fmt.Sprintf("%s must exist relative to the working directory", notFound.Path)
	case errors.As(err, &invalid):
		return fmt.Sprintf("%s needs a semantic version such as 1.2.3 in its version field", invalid.Path)
	}
	return ""
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(bumpkit.NewViper())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Errorf("Error: %v", err)
		if h := hint(err); h != "" {
			log.Info(h)
		}
		stop()
		os.Exit(1)
	}
}
