package syncer

import "context"

// Service is the view-facing facade over the engine.
type Service struct {
	engine *Engine
}

func NewService(engine *Engine) *Service {
	return &Service{engine: engine}
}

func (s *Service) EnterHabitsView(ctx context.Context) error {
	return s.engine.EnterView(ctx, CollectionHabits)
}

func (s *Service) EnterJournalView(ctx context.Context) error {
	return s.engine.EnterView(ctx, CollectionDayLogs)
}

func (s *Service) LeaveView() {
	s.engine.LeaveView()
}

func (s *Service) RefreshHabits() error {
	return s.engine.ManualRefresh(CollectionHabits)
}

func (s *Service) RefreshJournal() error {
	return s.engine.ManualRefresh(CollectionDayLogs)
}
