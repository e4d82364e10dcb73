package version

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/mod/semver"
)

const repoOwner = "apitester"
const repoName = "runtests"

// proxyURL is the module proxy queried for the latest tag.
var proxyURL = "https://proxy.golang.org"

var httpClient = &http.Client{Timeout: 3 * time.Second}

type VersionInfo struct {
	CurrentVersion   string
	LatestVersion    string
	IsOutdated       bool
	IsUpdateRequired bool
	FailedToFetch    error
}

// InstallPath is the argument to go install for the latest release.
func InstallPath() string {
	return fmt.Sprintf("github.com/%s/%s@latest", repoOwner, repoName)
}

func FetchUpdateInfo(currentVersion string) VersionInfo {
	latest, err := getLatestVersion()
	if err != nil {
		return VersionInfo{
			CurrentVersion: currentVersion,
			FailedToFetch:  err,
		}
	}
	return VersionInfo{
		IsUpdateRequired: isUpdateRequired(currentVersion, latest),
		IsOutdated:       isOutdated(currentVersion, latest),
		CurrentVersion:   currentVersion,
		LatestVersion:    latest,
	}
}

func (v *VersionInfo) PromptUpdateIfAvailable() {
	if v.IsOutdated {
		fmt.Fprintln(os.Stderr, "A new version of runtests is available!")
		fmt.Fprintln(os.Stderr, "Please run the following command to update:")
		fmt.Fprintf(os.Stderr, "  runtests upgrade\n\n")
	}
}

// Returns true if the current version is older than the latest.
func isOutdated(current string, latest string) bool {
	return semver.Compare(current, latest) < 0
}

// Returns true if the latest version has a higher major or minor
// number than the current version. If you don't want to force
// an update, you can increment the patch number instead.
func isUpdateRequired(current string, latest string) bool {
	latestMajorMinor := semver.MajorMinor(latest)
	currentMajorMinor := semver.MajorMinor(current)
	return semver.Compare(currentMajorMinor, latestMajorMinor) < 0
}

func getLatestVersion() (string, error) {
	resp, err := httpClient.Get(fmt.Sprintf("%s/github.com/%s/%s/@latest", proxyURL, repoOwner, repoName))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("module proxy returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var version struct{ Version string }
	err = json.Unmarshal(body, &version)
	if err != nil {
		return "", err
	}
	if !semver.IsValid(version.Version) {
		return "", fmt.Errorf("module proxy returned invalid version %q", version.Version)
	}

	return version.Version, nil
}
