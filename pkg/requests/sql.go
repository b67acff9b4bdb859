package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"github.com/spcl/faas-profiler-go/pkg/tracer"
)

// layout of the time_constraint column, microsecond precision
const dateLayout = "2006-01-02 15:04:05.000000"

const resolvedCacheSize = 256

// SQLTable keeps request records in a shared SQL table every participating
// function can reach. Resolved contexts are cached per identifier string,
// warm instances of chatty functions skip most lookups.
type SQLTable struct {
	conn     sqlx.SqlConn
	inserter *sqlx.BulkInserter
	resolved *lru.Cache[string, tracer.CarrierContext]
}

func CreateRequestTable(db sqlx.SqlConn) error {
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS `t_Requests` " +
		"(identifier VARCHAR(512) NOT NULL, " +
		"time_constraint DATETIME(6) NOT NULL, " +
		"trace_id VARCHAR(36) NOT NULL, " +
		"record_id VARCHAR(36) NOT NULL, " +
		"INDEX idx_identifier (identifier, time_constraint))")
	return err
}

func newRequestInserter(db sqlx.SqlConn) (*sqlx.BulkInserter, error) {
	return sqlx.NewBulkInserter(db, "INSERT INTO `t_Requests` "+
		"(identifier, time_constraint, trace_id, record_id) "+
		"VALUES (?,?,?,?)")
}

// NewSQLTable connects to the request store and prepares its table.
func NewSQLTable(dsn string) (*SQLTable, error) {
	if dsn == "" {
		return nil, fmt.Errorf("requests: request table DSN is missing")
	}

	db := sqlx.NewMysql(dsn)
	if err := CreateRequestTable(db); err != nil {
		return nil, fmt.Errorf("requests: creating table t_Requests: %w", err)
	}
	inserter, err := newRequestInserter(db)
	if err != nil {
		return nil, fmt.Errorf("requests: opening table t_Requests: %w", err)
	}

	resolved, _ := lru.New[string, tracer.CarrierContext](resolvedCacheSize)
	return &SQLTable{
		conn:     db,
		inserter: inserter,
		resolved: resolved,
	}, nil
}

// Flush forces buffered rows out, hooked on the invocation's defer-point.
func (t *SQLTable) Flush() {
	t.inserter.Flush()
}

func (t *SQLTable) RecordInbound(_ context.Context, in *tracer.InboundContext, tc tracer.CarrierContext) error {
	if err := validateRecord(tc, in.Identifier, in.InvokedAt); err != nil {
		return err
	}
	identifier, err := IdentifierString(RecordInbound, in.Identifier)
	if err != nil {
		return err
	}
	return t.insert(identifier, in.InvokedAt, tc)
}

func (t *SQLTable) RecordOutbound(_ context.Context, out *tracer.OutboundContext, tc tracer.CarrierContext) error {
	if err := validateRecord(tc, out.Identifier, out.CalledAt); err != nil {
		return err
	}
	identifier, err := IdentifierString(RecordOutbound, out.Identifier)
	if err != nil {
		return err
	}
	return t.insert(identifier, out.CalledAt, tc)
}

// FindContextByInbound looks for the newest OUTBOUND record with the same
// identifiers no later than the inbound time (plus slack).
func (t *SQLTable) FindContextByInbound(ctx context.Context, in *tracer.InboundContext) (tracer.CarrierContext, error) {
	identifier, err := IdentifierString(RecordOutbound, in.Identifier)
	if err != nil {
		return tracer.CarrierContext{}, err
	}
	return t.find(ctx, identifier,
		"SELECT trace_id, record_id FROM `t_Requests` "+
			"WHERE identifier = ? AND time_constraint <= ? "+
			"ORDER BY time_constraint DESC LIMIT 1",
		in.InvokedAt.Add(timeSlack))
}

// FindContextByOutbound looks for the oldest INBOUND record with the same
// identifiers no earlier than the outbound time (minus slack).
func (t *SQLTable) FindContextByOutbound(ctx context.Context, out *tracer.OutboundContext) (tracer.CarrierContext, error) {
	identifier, err := IdentifierString(RecordInbound, out.Identifier)
	if err != nil {
		return tracer.CarrierContext{}, err
	}
	return t.find(ctx, identifier,
		"SELECT trace_id, record_id FROM `t_Requests` "+
			"WHERE identifier = ? AND time_constraint >= ? "+
			"ORDER BY time_constraint ASC LIMIT 1",
		out.CalledAt.Add(-timeSlack))
}

func (t *SQLTable) insert(identifier string, at time.Time, tc tracer.CarrierContext) error {
	err := t.inserter.Insert(
		identifier,
		at.UTC().Format(dateLayout),
		tc.TraceID,
		tc.RecordID)
	if err != nil {
		logrus.WithError(err).WithField("identifier", identifier).
			Warn("profiler couldn't insert request record")
		return fmt.Errorf("requests: inserting record %s: %w", identifier, err)
	}
	logrus.Debugf("recorded request %s for trace %s", identifier, tc.TraceID)
	return nil
}

func (t *SQLTable) find(ctx context.Context, identifier, query string, at time.Time) (tracer.CarrierContext, error) {
	if tc, hit := t.resolved.Get(identifier); hit {
		return tc, nil
	}

	var row struct {
		TraceID  string `db:"trace_id"`
		RecordID string `db:"record_id"`
	}
	err := t.conn.QueryRowCtx(ctx, &row, query, identifier, at.UTC().Format(dateLayout))
	switch {
	case err == nil:
	case errors.Is(err, sqlx.ErrNotFound):
		return tracer.CarrierContext{}, fmt.Errorf("%w: identifier %s", ErrNoRecord, identifier)
	default:
		return tracer.CarrierContext{}, fmt.Errorf("requests: querying t_Requests: %w", err)
	}

	tc := tracer.CarrierContext{TraceID: row.TraceID, RecordID: row.RecordID}
	t.resolved.Add(identifier, tc)
	return tc, nil
}
