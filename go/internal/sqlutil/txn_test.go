package sqlutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
)

// txLog records how transactions opened through the test driver ended
type txLog struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
	commitErr error
}

type testDriver struct{ log *txLog }

func (d testDriver) Open(string) (driver.Conn, error) { return testConn(d), nil }

type testConn struct{ log *txLog }

func (c testConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c testConn) Close() error                        { return nil }
func (c testConn) Begin() (driver.Tx, error)           { return testTx(c), nil }

type testTx struct{ log *txLog }

func (t testTx) Commit() error {
	t.log.mu.Lock()
	defer t.log.mu.Unlock()
	t.log.commits++
	return t.log.commitErr
}

func (t testTx) Rollback() error {
	t.log.mu.Lock()
	defer t.log.mu.Unlock()
	t.log.rollbacks++
	return nil
}

var registerOnce sync.Once
var shared = &txLog{}

func openTestDB(t *testing.T) (*sql.DB, *txLog) {
	t.Helper()
	registerOnce.Do(func() { sql.Register("sqlutil-test", testDriver{log: shared}) })
	shared.mu.Lock()
	shared.commits, shared.rollbacks, shared.commitErr = 0, 0, nil
	shared.mu.Unlock()

	db, err := sql.Open("sqlutil-test", "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db, shared
}

type queries struct{ tx *sql.Tx }

func newQueries(tx *sql.Tx) *queries { return &queries{tx: tx} }

func TestRunCommits(t *testing.T) {
	db, log := openTestDB(t)
	var bound bool
	err := Run(context.Background(), db, newQueries, func(q *queries) error {
		bound = q.tx != nil
		return nil
	})
	if err != nil || !bound {
		t.Fatalf("Run = %v, bound = %v", err, bound)
	}
	if log.commits != 1 || log.rollbacks != 0 {
		t.Fatalf("commits=%d rollbacks=%d", log.commits, log.rollbacks)
	}
}

func TestRunRollsBackOnError(t *testing.T) {
	db, log := openTestDB(t)
	boom := errors.New("boom")
	err := Run(context.Background(), db, newQueries, func(*queries) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Run = %v, want boom", err)
	}
	if log.commits != 0 || log.rollbacks != 1 {
		t.Fatalf("commits=%d rollbacks=%d", log.commits, log.rollbacks)
	}
}

func TestRunRollsBackOnPanic(t *testing.T) {
	db, log := openTestDB(t)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic was swallowed")
			}
		}()
		_ = Run(context.Background(), db, newQueries, func(*queries) error { panic("bad query") })
	}()
	if log.rollbacks != 1 {
		t.Fatalf("rollbacks = %d, want 1", log.rollbacks)
	}
}

func TestRunWrapsCommitError(t *testing.T) {
	db, log := openTestDB(t)
	log.commitErr = errors.New("serialization failure")
	err := Run(context.Background(), db, newQueries, func(*queries) error { return nil })
	if !errors.Is(err, log.commitErr) {
		t.Fatalf("Run = %v, want commit error", err)
	}
}
