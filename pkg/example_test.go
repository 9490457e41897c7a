package bumpkit_test

import (
	"fmt"

	bumpkit "github.com/bcomnes/bumpkit/pkg"
	"github.com/spf13/afero"
)

// ExampleNextVersion shows the increment rules for every bump kind.
func ExampleNextVersion() {
	for _, kind := range bumpkit.BumpKinds {
		fmt.Printf("%-10s 1.2.3 -> %s\n", kind, bumpkit.NextVersion("1.2.3", kind))
	}
	fmt.Println("prerelease 1.2.3-rc.1 ->", bumpkit.NextVersion("1.2.3-rc.1", bumpkit.PreRelease))
	// Output:
	// major      1.2.3 -> 2.0.0
	// minor      1.2.3 -> 1.3.0
	// patch      1.2.3 -> 1.2.4
	// premajor   1.2.3 -> 2.0.0-0
	// preminor   1.2.3 -> 1.3.0-0
	// prepatch   1.2.3 -> 1.2.4-0
	// prerelease 1.2.3 -> 1.2.4-0
	// prerelease 1.2.3-rc.1 -> 1.2.3-rc.2
}

// ExampleUpdaterService detects the ecosystem of a checkout and bumps it.
func ExampleUpdaterService() {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "Cargo.toml", []byte("[package]\nname = \"demo\"\nversion = \"0.9.0\"\n"), 0o644)

	files := bumpkit.NewFileAccess(fs)
	service := bumpkit.NewUpdaterService(bumpkit.DefaultRegistry(files), files)

	platform, err := service.ResolvePlatform("")
	if err != nil {
		fmt.Println(err)
		return
	}
	next, err := service.UpdateVersion(platform, bumpkit.Minor, nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	content, _ := afero.ReadFile(fs, "Cargo.toml")
	fmt.Println(platform, next)
	fmt.Print(string(content))
	// Output:
	// rust 0.10.0
	// [package]
	// name = "demo"
	// version = "0.10.0"
}

// ExampleUpdaterService_UpdateCustomVersions bumps a version kept in an
// arbitrary file.
func ExampleUpdaterService_UpdateCustomVersions() {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "build.env", []byte("IMAGE=app\nAPP_VERSION=\"1.4.2\"\n"), 0o644)

	files := bumpkit.NewFileAccess(fs)
	service := bumpkit.NewUpdaterService(bumpkit.DefaultRegistry(files), files)

	next, err := service.UpdateCustomVersions(bumpkit.Patch, []bumpkit.BumpTarget{
		{Path: "build.env", Variable: "APP_VERSION"},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	content, _ := afero.ReadFile(fs, "build.env")
	fmt.Println(next)
	fmt.Print(string(content))
	// Output:
	// 1.4.3
	// IMAGE=app
	// APP_VERSION="1.4.3"
}
