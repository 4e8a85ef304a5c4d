package main

import (
	"log/slog"

	"github.com/gearxr/gear/internal/viewer"
)

// consoleUI logs every view the session renders.
type consoleUI struct {
	logger *slog.Logger
}

func (u *consoleUI) ShowPopup(v viewer.PopupView) {
	u.logger.Info("Popup", "state", v.State, "hotspot", v.HotspotID, "title", v.Title)
}

func (u *consoleUI) ShowForm(v viewer.FormView) {
	u.logger.Info("Form", "state", v.State, "heading", v.Heading, "message", v.Message)
}

func (u *consoleUI) ShowLeaderboard(v viewer.LeaderboardView) {
	u.logger.Debug("Leaderboard", "open", v.Open, "rows", len(v.Rows))
}

func (u *consoleUI) SetControls(v viewer.ControlsView) {
	u.logger.Debug("Controls", "ar", v.AR.Visible, "vr", v.VR.Visible, "autorotate", v.AutoRotate.Active)
}

func (u *consoleUI) MarkLoaded() {
	u.logger.Info("Model loaded")
}

type consoleNotifier struct {
	logger *slog.Logger
}

func (n *consoleNotifier) Exception(err error) {
	n.logger.Error("Viewer stopped", "error", err)
}

func (n *consoleNotifier) Alert(title, message string) {
	n.logger.Warn(title, "message", message)
}

func (n *consoleNotifier) Error(message string, err error) {
	n.logger.Error(message, "error", err)
}

func (n *consoleNotifier) Success(message string) {
	n.logger.Info(message)
}
