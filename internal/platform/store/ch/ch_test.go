package ch

import (
	"context"
	"errors"
	"testing"

	"watchtower/internal/platform/testkit"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type fakeBatch struct {
	driver.Batch
	rows      [][]any
	appendErr error
	sent      bool
	aborted   bool
}

func (b *fakeBatch) Append(v ...any) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	b.rows = append(b.rows, v)
	return nil
}
func (b *fakeBatch) Send() error  { b.sent = true; return nil }
func (b *fakeBatch) Abort() error { b.aborted = true; return nil }

type fakeConn struct {
	batch   *fakeBatch
	query   string
	pingErr error
	closed  bool
}

func (c *fakeConn) PrepareBatch(_ context.Context, q string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	c.query = q
	return c.batch, nil
}
func (c *fakeConn) Exec(context.Context, string, ...any) error { return nil }
func (c *fakeConn) Ping(context.Context) error                 { return c.pingErr }
func (c *fakeConn) Close() error                               { c.closed = true; return nil }

func TestOpen_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestOpen_PingFailureCloses(t *testing.T) {
	testkit.Serial(t)

	fc := &fakeConn{pingErr: errors.New("down")}
	var seen *clickhouse.Options
	testkit.Swap(t, &open, func(o *clickhouse.Options) (conn, error) {
		seen = o
		return fc, nil
	})

	_, err := Open(context.Background(), Config{URL: "clickhouse://localhost:9000/default", ClientName: "watchtower"})
	if err == nil {
		t.Fatal("expected ping error")
	}
	if !fc.closed {
		t.Fatal("conn not closed after failed ping")
	}
	if seen == nil || len(seen.ClientInfo.Products) == 0 {
		t.Fatal("client info not stamped")
	}
}

func TestInsert_AppendsAndSends(t *testing.T) {
	t.Parallel()

	fb := &fakeBatch{}
	c := &CH{c: &fakeConn{batch: fb}}

	err := c.Insert(context.Background(), "infraction_events", [][]any{
		{"76561198000000001", int64(1), "Rule 1"},
		{"", int64(2), "Points:3"},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !fb.sent || len(fb.rows) != 2 {
		t.Fatalf("sent=%v rows=%d", fb.sent, len(fb.rows))
	}
}

func TestInsert_AppendErrorAborts(t *testing.T) {
	t.Parallel()

	fb := &fakeBatch{appendErr: errors.New("type mismatch")}
	c := &CH{c: &fakeConn{batch: fb}}

	if err := c.Insert(context.Background(), "t", [][]any{{1}}); err == nil {
		t.Fatal("expected append error")
	}
	if !fb.aborted || fb.sent {
		t.Fatalf("aborted=%v sent=%v", fb.aborted, fb.sent)
	}
}

func TestInsert_NoRowsIsNoop(t *testing.T) {
	t.Parallel()

	fc := &fakeConn{}
	c := &CH{c: fc}
	if err := c.Insert(context.Background(), "t", nil); err != nil {
		t.Fatal(err)
	}
	if fc.query != "" {
		t.Fatal("batch prepared for empty insert")
	}
}

func TestBuildClientInfo_DefaultsRole(t *testing.T) {
	t.Parallel()

	ci := BuildClientInfo("", "v1")
	if ci.Products[0].Name != "watchtower" || ci.Products[0].Version != "v1" {
		t.Fatalf("unexpected product %+v", ci.Products[0])
	}
	if ci.Products[1].Version != "watchtower" {
		t.Fatalf("role not defaulted: %+v", ci.Products[1])
	}
}
