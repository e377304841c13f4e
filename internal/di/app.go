package di

import (
	"github.com/Florenz0707/NASSAV-sub000/internal/api"
	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/controllers"
	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/notify"
	"github.com/Florenz0707/NASSAV-sub000/internal/queue"
	"github.com/Florenz0707/NASSAV-sub000/internal/scheduler"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/sources"
	"github.com/sirupsen/logrus"
)

// App is the assembled object graph shared by every command
type App struct {
	Config       *config.Config
	Logger       *logrus.Logger
	DB           *models.Database
	Backend      *Backend
	Registry     *sources.Registry
	Acquisition  *controllers.AcquisitionController
	Downloads    *controllers.DownloadController
	Translations *controllers.TranslationController
	Reconciler   *controllers.Reconciler
	Submitter    *queue.Submitter
	Hub          *notify.Hub
	Relay        *notify.Relay     // nil in memory mode
	Worker       *queue.Worker     // nil in memory mode
	Scheduler    *scheduler.Scheduler
	Server       *api.Server
}

// Drain waits for jobs queued in-process. No-op with Redis, where the
// worker command owns the jobs.
func (a *App) Drain() {
	if a.Backend.Local != nil {
		a.Backend.Local.Wait()
	}
}
