// Package audit dispatches action-log writes through an actor so callers
// never block on, or fail because of, the log store.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/phoneshop/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type record struct {
	ActorID string
	Action  string
	Module  string
	Details map[string]interface{}
}

// writerActor owns the Mongo audit store. Messages queue in its mailbox, so
// a slow or down store delays nothing on the request path.
type writerActor struct {
	store  *repository.MongoRepository
	logger *zap.Logger
}

func (a *writerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *record:
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := a.store.CreateAuditLog(writeCtx, &repository.AuditLog{
			ActorID: msg.ActorID,
			Action:  msg.Action,
			Module:  msg.Module,
			Details: bson.M(msg.Details),
		})
		if err != nil {
			a.logger.Warn("Audit write failed",
				zap.String("action", msg.Action),
				zap.String("module", msg.Module),
				zap.Error(err))
		}

	case *actor.Started:
		a.logger.Info("Audit writer started")

	case *actor.Stopped:
		a.logger.Info("Audit writer stopped")
	}
}

// Sink is the write-only handle handed to services.
type Sink struct {
	root *actor.RootContext
	pid  *actor.PID
}

func NewSink(system *actor.ActorSystem, store *repository.MongoRepository, logger *zap.Logger) (*Sink, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &writerActor{store: store, logger: logger.Named("audit-writer")}
	})
	pid, err := system.Root.SpawnNamed(props, "audit-sink")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn audit writer: %w", err)
	}
	return &Sink{root: system.Root, pid: pid}, nil
}

// Record appends one action entry. Fire-and-forget: it never blocks and
// never reports failure to the caller.
func (s *Sink) Record(actorID, action, module string, details map[string]interface{}) {
	s.root.Send(s.pid, &record{
		ActorID: actorID,
		Action:  action,
		Module:  module,
		Details: details,
	})
}

// Stop drains the writer; used on shutdown.
func (s *Sink) Stop() {
	s.root.Stop(s.pid)
}
