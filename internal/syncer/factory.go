package syncer

import (
	"database/sql"
	"time"

	"github.com/lachiem1/habitflow/internal/daylog"
	"github.com/lachiem1/habitflow/internal/habit"
	"github.com/lachiem1/habitflow/internal/hubapi"
	"github.com/lachiem1/habitflow/internal/mirror"
	"github.com/lachiem1/habitflow/internal/storage"
)

// Stack bundles everything the TUI needs to read and write habit and
// journal data across the three tiers.
type Stack struct {
	Service     *Service
	Habits      *HabitsSyncer
	Logs        *LogsSyncer
	HabitSaves  *Coordinator[habit.Habit]
	LogSaves    *Coordinator[daylog.DailyLog]
	HabitsRepo  *storage.HabitsRepo
	LogsRepo    *storage.LogsRepo
	Settings    *storage.SettingsRepo
}

func NewStack(
	db *sql.DB,
	client *hubapi.Client,
	mirrorStore *mirror.Store,
	onEngineEvent func(Event),
	onSaveEvent func(SaveEvent),
) (*Stack, error) {
	habitsRepo := storage.NewHabitsRepo(db)
	logsRepo := storage.NewLogsRepo(db)
	syncStateRepo := storage.NewSyncStateRepo(db)
	settingsRepo := storage.NewSettingsRepo(db)

	habitsMirror := NewMirrorHabitsTier(mirrorStore)
	logsMirror := NewMirrorLogsTier(mirrorStore)

	habitsSyncer := NewHabitsSyncer(client, habitsRepo, syncStateRepo, habitsMirror)
	logsSyncer := NewLogsSyncer(client, logsRepo, syncStateRepo, logsMirror)

	engine, err := NewEngine(
		EngineConfig{
			StaleTTL:     30 * time.Second,
			PollInterval: 60 * time.Second,
			Backoff:      []time.Duration{2 * time.Second, 5 * time.Second, 15 * time.Second, 60 * time.Second},
		},
		[]Syncer{habitsSyncer, logsSyncer},
		onEngineEvent,
	)
	if err != nil {
		return nil, err
	}

	habitSaves := NewCoordinator[habit.Habit](
		NewRemoteHabitsTier(client),
		NewDurableHabitsTier(habitsRepo),
		habitsMirror,
		CoordinatorConfig{OnEvent: onSaveEvent},
	)
	logSaves := NewCoordinator[daylog.DailyLog](
		NewRemoteLogsTier(client),
		NewDurableLogsTier(logsRepo),
		logsMirror,
		CoordinatorConfig{OnEvent: onSaveEvent},
	)

	return &Stack{
		Service:    NewService(engine),
		Habits:     habitsSyncer,
		Logs:       logsSyncer,
		HabitSaves: habitSaves,
		LogSaves:   logSaves,
		HabitsRepo: habitsRepo,
		LogsRepo:   logsRepo,
		Settings:   settingsRepo,
	}, nil
}
