package controller

import (
	"go.dedis.ch/objdb"
	"go.dedis.ch/objdb/chain/rewardqueue"
	"go.dedis.ch/objdb/cli"
	"go.dedis.ch/objdb/config"
	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/core/snapshot"
	"go.dedis.ch/objdb/core/store/kv"
	"go.dedis.ch/objdb/core/undo"
	"go.dedis.ch/objdb/serde/json"
	"golang.org/x/xerrors"
)

// workspace is the queue loaded from the database of the configuration.
type workspace struct {
	db      kv.DB
	undo    *undo.Manager
	queue   *rewardqueue.Queue
	snap    snapshot.Snapshot
	sources []snapshot.Source
}

func openWorkspace(flags cli.Flags) (*workspace, error) {
	cfg, err := config.Load(flags.String(configFlag))
	if err != nil {
		return nil, xerrors.Errorf("failed to load config: %v", err)
	}

	objdb.SetLevel(cfg.LogLevel)

	db, err := kv.Open(cfg.Backend, cfg.DB)
	if err != nil {
		return nil, xerrors.Errorf("failed to open database: %v", err)
	}

	manager := undo.NewManager(undo.WithHistory(cfg.History))
	queue := rewardqueue.NewQueue(identity.NewAllocator(), manager)

	ws := &workspace{
		db:    db,
		undo:  manager,
		queue: queue,
		snap:  snapshot.New(db, cfg.Bucket, json.NewContext()),
		sources: []snapshot.Source{
			snapshot.Of(queue.Entries(), rewardqueue.NewEntryFactory()),
			snapshot.Of(queue.TotalsStore(), rewardqueue.NewTotalsFactory()),
		},
	}

	err = ws.snap.Load(ws.sources...)
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("failed to load queue: %v", err)
	}

	return ws, nil
}

// update applies the function to the queue in a session, and saves the queue
// before committing.
func (ws *workspace) update(fn func(*rewardqueue.Queue) error) error {
	sess := ws.undo.Begin()
	defer sess.Close()

	err := fn(ws.queue)
	if err != nil {
		return err
	}

	err = ws.snap.Save(ws.sources...)
	if err != nil {
		return xerrors.Errorf("failed to save queue: %v", err)
	}

	return sess.Commit()
}

func (ws *workspace) Close() error {
	return ws.db.Close()
}
