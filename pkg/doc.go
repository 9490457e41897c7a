// Package bumpkit bumps semantic versions across project ecosystems and runs
// the surrounding release workflow.
//
// It provides:
//   - Version arithmetic for the major, minor, patch, premajor, preminor,
//     prepatch and prerelease bump kinds (NextVersion).
//   - Updaters for node, python, rust, go, docker, php and deno manifests, plus
//     caller defined targets on the custom platform. Only the version literal
//     is rewritten; the rest of each file is preserved byte for byte.
//   - A Registry and UpdaterService that detect the platform of a working tree
//     and drive the bump.
//   - Syncing the first version string of extra files (SyncVersionFiles) and a
//     conventional commit changelog (GenerateChangelog, ChangelogService).
//   - Git commit, branch, tag and push through go-git (Repository) and pull
//     request creation through the GitHub API (PullRequestClient).
//   - Run, which chains all of the above from a Config loaded with LoadConfig.
//
// Usage Example:
//
//	import (
//	    "context"
//	    "log"
//
//	    bumpkit "github.com/bcomnes/bumpkit/pkg"
//	)
//
//	func main() {
//	    cfg, err := bumpkit.LoadConfig(bumpkit.NewViper())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    res, err := bumpkit.Run(context.Background(), cfg, bumpkit.Dependencies{})
//	    if err != nil {
//	        log.Fatalf("release failed at %s: %v", res.FailedStep, err)
//	    }
//	    log.Printf("%s %s -> %s", res.Platform, res.OldVersion, res.NewVersion)
//	}
//
// For additional details and API documentation, see https://pkg.go.dev/github.com/bcomnes/bumpkit.
package bumpkit
