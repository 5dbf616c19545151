package handler

import (
	"github.com/reptrack/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	notifier   *service.Notifier
	movements  *service.MovementService
	workouts   *service.WorkoutService
	templates  *service.TemplateService
	attendance *service.AttendanceService
	charts     *service.ChartService
	settings   *service.SettingService
	uploadDir  string
	uploadURL  string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, uploadDir, uploadURL string) *API {
	notifier := service.NewNotifier()
	settingService := service.NewSettingService(db)

	return &API{
		notifier:   notifier,
		movements:  service.NewMovementService(db, notifier),
		workouts:   service.NewWorkoutService(db, notifier),
		templates:  service.NewTemplateService(db, notifier),
		attendance: service.NewAttendanceService(db, settingService),
		charts:     service.NewChartService(db),
		settings:   settingService,
		uploadDir:  uploadDir,
		uploadURL:  uploadURL,
	}
}

// Notifier exposes the change bus so callers outside the handler layer can
// subscribe to data-change events.
func (a *API) Notifier() *service.Notifier {
	return a.notifier
}
