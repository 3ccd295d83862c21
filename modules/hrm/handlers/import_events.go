package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/campus-hr/hrdesk/modules/hrm/services"
	"github.com/campus-hr/hrdesk/pkg/application"
)

// ImportEventsHandler writes an audit line for every loaded and submitted import.
type ImportEventsHandler struct {
	logger *logrus.Entry
}

func RegisterImportEventHandlers(app application.Application) *ImportEventsHandler {
	handler := &ImportEventsHandler{
		logger: app.Logger().WithField("component", "hrm.import_audit"),
	}
	app.EventPublisher().Subscribe(handler.onLoaded)
	app.EventPublisher().Subscribe(handler.onSubmitted)
	return handler
}

func (h *ImportEventsHandler) onLoaded(event *services.ImportLoadedEvent) {
	h.logger.WithFields(logrus.Fields{
		"session":  event.SessionID,
		"campus":   event.Campus,
		"filename": event.Filename,
		"total":    event.Total,
		"valid":    event.Valid,
	}).Info("import loaded")
}

func (h *ImportEventsHandler) onSubmitted(event *services.ImportSubmittedEvent) {
	entry := h.logger.WithFields(logrus.Fields{
		"session":   event.SessionID,
		"campus":    event.Campus,
		"sent":      event.Sent,
		"skipped":   event.Skipped,
		"succeeded": event.Succeeded,
		"failed":    event.Failed,
	})
	if event.Failed > 0 {
		entry.Warn("import submitted with failures")
		return
	}
	entry.Info("import submitted")
}
