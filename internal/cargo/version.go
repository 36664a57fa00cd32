package cargo

import (
	"fmt"
	"strconv"
	"strings"
)

// MinCargoVersion is the oldest cargo whose `rustc` subcommand accepts
// --crate-type.
const MinCargoVersion = "1.64.0"

// CheckVersion validates `cargo --version` output such as
// "cargo 1.82.0-nightly (8f40fc59f 2024-08-21)". When channel is "nightly"
// the output must name a nightly build.
func CheckVersion(output, channel string) error {
	fields := strings.Fields(output)
	if len(fields) < 2 || fields[0] != "cargo" {
		return fmt.Errorf("unrecognized cargo version output %q", output)
	}

	version := fields[1]
	if channel == "nightly" && !strings.Contains(version, "-nightly") {
		return fmt.Errorf("cargo nightly toolchain required, found %s", version)
	}

	release, _, _ := strings.Cut(version, "-")
	if CompareVersions(release, MinCargoVersion) < 0 {
		return fmt.Errorf("cargo version %s required, found %s", MinCargoVersion, release)
	}
	return nil
}

// CompareVersions compares two semver strings (X.Y.Z format).
// Returns -1 if a < b, 0 if equal, 1 if a > b.
func CompareVersions(a, b string) int {
	partsA := strings.Split(strings.TrimPrefix(a, "v"), ".")
	partsB := strings.Split(strings.TrimPrefix(b, "v"), ".")

	for i := range 3 {
		numA, _ := strconv.Atoi(safeIndex(partsA, i))
		numB, _ := strconv.Atoi(safeIndex(partsB, i))
		if numA < numB {
			return -1
		}
		if numA > numB {
			return 1
		}
	}
	return 0
}

func safeIndex(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "0"
}
