package browser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
)

// EnsureChromium returns a usable Chromium binary path, preferring an
// explicitly configured one and downloading a build otherwise.
func EnsureChromium(ctx context.Context, bin string, revision int) (string, error) {
	if bin != "" {
		if _, err := os.Stat(bin); err != nil {
			return "", fmt.Errorf("configured chromium binary not found: %w", err)
		}
		return bin, nil
	}

	if err := installDependencies(ctx); err != nil {
		return "", err
	}

	downloader := launcher.NewBrowser()
	downloader.Context = ctx
	if revision > 0 {
		downloader.Revision = revision
	}

	path, err := downloader.Get()
	if err != nil {
		return "", fmt.Errorf("failed to download chromium: %w", err)
	}
	return path, nil
}

// installDependencies installs the OS packages Chromium needs on Linux.
func installDependencies(ctx context.Context) error {
	if runtime.GOOS != "linux" {
		return nil
	}

	for _, pm := range packageManagers {
		path, err := exec.LookPath(pm.name)
		if path == "" || err != nil {
			continue
		}
		for _, args := range pm.commands {
			if err := runCommand(ctx, path, args...); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("no supported package manager found for chromium dependencies")
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v failed: %w\n%s", name, args, err, out.String())
	}
	return nil
}

type packageManager struct {
	name     string
	commands [][]string
}

var sharedDeps = []string{
	"ca-certificates",
	"libasound2",
	"libatk-bridge2.0-0",
	"libatk1.0-0",
	"libcups2",
	"libdbus-1-3",
	"libdrm2",
	"libgbm1",
	"libgtk-3-0",
	"libnspr4",
	"libnss3",
	"libpango-1.0-0",
	"libx11-xcb1",
	"libxcomposite1",
	"libxdamage1",
	"libxfixes3",
	"libxkbcommon0",
	"libxrandr2",
	"libxshmfence1",
	"fonts-liberation",
}

var packageManagers = []packageManager{
	{
		name: "apt-get",
		commands: [][]string{
			{"update"},
			append([]string{"install", "-y", "--no-install-recommends"}, sharedDeps...),
		},
	},
	{
		name: "dnf",
		commands: [][]string{
			{"install", "-y", "alsa-lib", "atk", "cups-libs", "gtk3", "libdrm",
				"libX11-xcb", "libXcomposite", "libXdamage", "libXfixes", "libXrandr",
				"libxkbcommon", "libxshmfence", "mesa-libgbm", "nspr", "nss", "pango"},
		},
	},
	{
		name: "apk",
		commands: [][]string{
			{"add", "--no-cache", "ca-certificates", "alsa-lib", "atk", "at-spi2-atk",
				"cairo", "cups-libs", "fontconfig", "freetype", "gdk-pixbuf", "gtk+3.0",
				"harfbuzz", "libdrm", "libx11", "libxcb", "libxcomposite", "libxdamage",
				"libxfixes", "libxkbcommon", "libxrandr", "mesa-gbm", "nss", "pango",
				"ttf-freefont"},
		},
	},
}
