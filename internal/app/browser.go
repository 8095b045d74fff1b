package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"
)

// browserMethod is one way of asking the OS to open a URL
type browserMethod struct {
	name string
	cmd  string
	args []string
}

// openBrowser tries each platform method until one starts.
func openBrowser(ctx context.Context, url string) error {
	var lastErr error
	for _, method := range browserMethods(url) {
		cmdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := exec.CommandContext(cmdCtx, method.cmd, method.args...).Run()
		cancel()
		if err != nil {
			lastErr = err
			slog.Debug("Browser open method failed",
				slog.String("method", method.name),
				slog.String("error", err.Error()))
			continue
		}
		slog.Info("Browser opened", slog.String("method", method.name), slog.String("url", url))
		return nil
	}
	return fmt.Errorf("failed to open browser: %w", lastErr)
}

// browserMethods returns platform-specific browser opening methods
func browserMethods(url string) []browserMethod {
	switch runtime.GOOS {
	case "windows":
		return []browserMethod{
			{name: "rundll32", cmd: "rundll32", args: []string{"url.dll,FileProtocolHandler", url}},
			{name: "start_command", cmd: "cmd", args: []string{"/c", "start", "", url}},
		}
	case "darwin":
		return []browserMethod{
			{name: "open", cmd: "open", args: []string{url}},
		}
	default:
		return []browserMethod{
			{name: "xdg-open", cmd: "xdg-open", args: []string{url}},
			{name: "sensible-browser", cmd: "sensible-browser", args: []string{url}},
		}
	}
}
