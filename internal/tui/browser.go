package tui

import (
	"log/slog"
	"os/exec"
	"runtime"

	"git.home.luguber.info/inful/mapexporter/internal/logfields"
)

// openBrowser hands url to the desktop's default handler without waiting for it.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		slog.Debug("Browser launch failed", logfields.URL(url), logfields.Error(err))
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
