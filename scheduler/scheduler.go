package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"feedsync/models"
	"github.com/robfig/cron/v3"
)

// Ingester runs one ingestion.
type Ingester interface {
	Ingest(ctx context.Context, ownerID *string) (*models.IngestionReport, error)
}

// CommandStore is the operator command queue.
type CommandStore interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
	ParseCommandParams(cmd *models.Command) (*models.CommandParams, error)
}

type Options struct {
	Cron         string
	OwnerID      string // owner stamped on scheduled runs
	PollInterval time.Duration
}

type Scheduler struct {
	opts     Options
	ingester Ingester
	store    CommandStore
	cron     *cron.Cron
	stopCh   chan struct{}
	stopOnce sync.Once

	paused  atomic.Bool
	running sync.Mutex
}

func New(opts Options, ingester Ingester, store CommandStore) *Scheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Scheduler{
		opts:     opts,
		ingester: ingester,
		store:    store,
		cron:     cron.New(),
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.store != nil {
		go s.pollCommands(ctx)
	}

	if s.opts.Cron == "" {
		log.Println("No schedule configured, daemon will only respond to commands and HTTP")
		return nil
	}

	log.Printf("Starting scheduler with cron: %s", s.opts.Cron)
	_, err := s.cron.AddFunc(s.opts.Cron, func() {
		if s.paused.Load() {
			log.Println("Scheduled ingestion skipped: paused")
			return
		}
		if err := s.RunIngest(ctx, ownerPtr(s.opts.OwnerID)); err != nil {
			log.Printf("Scheduled run error: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		close(s.stopCh)
	})
}

func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// RunIngest runs one ingestion unless another scheduled or queued one is
// still in progress.
func (s *Scheduler) RunIngest(ctx context.Context, ownerID *string) error {
	if !s.running.TryLock() {
		log.Println("Ingestion already running, skipping")
		return nil
	}
	defer s.running.Unlock()

	_, err := s.ingester.Ingest(ctx, ownerID)
	return err
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processCommands(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) processCommands(ctx context.Context) {
	cmds, err := s.store.GetPendingCommands()
	if err != nil {
		log.Printf("Error getting commands: %v", err)
		return
	}

	for _, cmd := range cmds {
		log.Printf("Processing command: %s", cmd.Command)
		if err := s.handleCommand(ctx, &cmd); err != nil {
			log.Printf("Command error: %v", err)
		}
		if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
			log.Printf("Error marking command processed: %v", err)
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdIngest:
		params, err := s.store.ParseCommandParams(cmd)
		if err != nil {
			return fmt.Errorf("parse params: %w", err)
		}
		owner := params.OwnerID
		if owner == "" {
			owner = s.opts.OwnerID
		}
		return s.RunIngest(ctx, ownerPtr(owner))
	case models.CmdPause:
		s.paused.Store(true)
		log.Println("Scheduled ingestion paused")
		return nil
	case models.CmdResume:
		s.paused.Store(false)
		log.Println("Scheduled ingestion resumed")
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}

func ownerPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
