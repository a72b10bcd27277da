package fstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/fKV/lib/common"
	"github.com/ValentinKolb/fKV/lib/db"
	"github.com/ValentinKolb/fKV/lib/store"
	"github.com/ValentinKolb/fKV/lib/store/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore opens a store in a temporary directory with a short refresh interval.
// The store is closed when the test ends.
func openTestStore(t *testing.T, modify ...func(c *common.StoreConfig)) *Store {
	t.Helper()

	conf := common.DefaultStoreConfig(filepath.Join(t.TempDir(), "store.json"))
	conf.RefreshInterval = 10 * time.Millisecond
	conf.LogLevel = "error"
	for _, m := range modify {
		m(&conf)
	}

	s, err := Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func jsonValue(t *testing.T, r *store.Record) any {
	t.Helper()
	require.NotNil(t, r)
	var v any
	require.NoError(t, r.Decode(&v))
	return v
}

// --------------------------------------------------------------------------
// Versioning
// --------------------------------------------------------------------------

func TestStore_SetGet_Versions(t *testing.T) {
	s := openTestStore(t)

	res, err := s.Set("k", "v1", store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, store.ActionSet, res.Action)
	assert.Nil(t, res.PrevNode)
	assert.False(t, res.Queued)

	got, err := s.Get("k", store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, store.ActionGet, got.Action)
	assert.Equal(t, "v1", jsonValue(t, got.Node))
	assert.Equal(t, uint64(1), got.Node.Version)

	res, err = s.Set("k", map[string]any{"nested": []int{1, 2}}, store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Node.Version)
	require.NotNil(t, res.PrevNode)
	assert.Equal(t, uint64(1), res.PrevNode.Version)
	assert.Equal(t, "v1", jsonValue(t, res.PrevNode))
	assert.JSONEq(t, `{"nested":[1,2]}`, string(res.Node.Value))
}

func TestStore_CompareAndSwap(t *testing.T) {
	s := openTestStore(t)

	first, err := s.Set("k", 1, store.WithWait())
	require.NoError(t, err)
	second, err := s.Set("k", 2, store.WithWait())
	require.NoError(t, err)

	t.Run("Stale_Prev_Fails", func(t *testing.T) {
		_, err := s.Set("k", 3, store.WithPrevNode(first.Node), store.WithWait())
		assert.ErrorIs(t, err, store.ErrVersionConflict)
		assert.ErrorIs(t, err, store.ErrCompareAndSwap)
	})

	t.Run("Current_Prev_Succeeds", func(t *testing.T) {
		res, err := s.Set("k", 3, store.WithPrevNode(second.Node), store.WithWait())
		require.NoError(t, err)
		assert.Equal(t, store.ActionCompareAndSwap, res.Action)
		assert.Equal(t, second.Node, res.PrevNode)
		assert.Equal(t, uint64(3), res.Node.Version)
	})

	t.Run("Prev_On_Absent_Key_Fails", func(t *testing.T) {
		_, err := s.Set("absent", 1, store.WithPrevNode(&store.Record{Version: 1}), store.WithWait())
		assert.ErrorIs(t, err, store.ErrVersionConflict)
	})

	t.Run("Prev_Absent", func(t *testing.T) {
		res, err := s.Set("fresh", 1, store.WithPrevAbsent(), store.WithWait())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.Node.Version)

		_, err = s.Set("fresh", 2, store.WithPrevAbsent(), store.WithWait())
		assert.ErrorIs(t, err, store.ErrVersionConflict)
	})
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)

	first, err := s.Set("k", "a", store.WithWait())
	require.NoError(t, err)
	second, err := s.Set("k", "b", store.WithWait())
	require.NoError(t, err)

	_, err = s.Delete("k", store.WithPrevNode(first.Node), store.WithWait())
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.ErrorIs(t, err, store.ErrCompareAndDelete)

	res, err := s.Delete("k", store.WithPrevNode(second.Node), store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, store.ActionCompareAndDelete, res.Action)
	assert.Nil(t, res.Node)
	assert.Equal(t, second.Node, res.PrevNode)

	_, err = s.Delete("k", store.WithWait())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Delete("k", store.WithPrevNode(second.Node), store.WithWait())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Get("k", store.WithWait())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Set("plain", 1, store.WithWait())
	require.NoError(t, err)
	res, err = s.Delete("plain", store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, store.ActionDelete, res.Action)
	assert.Nil(t, res.Node)
}

// --------------------------------------------------------------------------
// Namespaces & Listings
// --------------------------------------------------------------------------

func TestStore_NamespaceIsolation(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Set("foo", "bar", store.WithNamespace("fubar"), store.WithWait())
	require.NoError(t, err)

	_, err = s.Get("foo", store.WithWait())
	assert.ErrorIs(t, err, store.ErrNotFound)

	res, err := s.Get("foo", store.WithNamespace("fubar"), store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, "bar", jsonValue(t, res.Node))

	content, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"_namespaces":{"fubar":{"foo":{"v":"bar","i":1}}}}`, string(content))
}

func TestStore_ListCounts(t *testing.T) {
	s := openTestStore(t)

	for _, k := range []string{"b", "a"} {
		_, err := s.Set(k, k, store.WithWait())
		require.NoError(t, err)
	}
	for _, k := range []string{"x", "y"} {
		_, err := s.Set(k, k, store.WithNamespace("ns"), store.WithWait())
		require.NoError(t, err)
	}

	root, err := s.List(store.WithWait())
	require.NoError(t, err)
	require.Len(t, root, 2)
	assert.Equal(t, "a", root[0].Node.Key)
	assert.Equal(t, "b", root[1].Node.Key)

	ns, err := s.List(store.WithNamespace("ns"), store.WithWait())
	require.NoError(t, err)
	require.Len(t, ns, 2)
	for _, r := range ns {
		assert.Contains(t, []string{"x", "y"}, r.Node.Key)
	}

	missing, err := s.List(store.WithNamespace("missing"), store.WithWait())
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestStore_Reads_Never_Create_Namespaces(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("k", store.WithNamespace("ghost"), store.WithWait())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.List(store.WithNamespace("ghost"), store.WithWait())
	require.NoError(t, err)

	content, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"_namespaces":{}}`, string(content))
}

func TestStore_Last_Delete_Drops_Namespace(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Set("k", 1, store.WithNamespace("ns"), store.WithWait())
	require.NoError(t, err)
	_, err = s.Delete("k", store.WithNamespace("ns"), store.WithWait())
	require.NoError(t, err)

	content, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"_namespaces":{}}`, string(content))
}

func TestStore_InvalidKey(t *testing.T) {
	s := openTestStore(t)

	for _, wait := range []bool{false, true} {
		var opts []store.Option
		if wait {
			opts = append(opts, store.WithWait())
		}
		for _, ns := range []string{"", "ns"} {
			nsOpts := append([]store.Option{store.WithNamespace(ns)}, opts...)

			_, err := s.Set(db.NamespaceKey, 1, nsOpts...)
			assert.ErrorIs(t, err, store.ErrInvalidKey, "set wait=%v ns=%q", wait, ns)

			_, err = s.Delete(db.NamespaceKey, nsOpts...)
			assert.ErrorIs(t, err, store.ErrInvalidKey, "delete wait=%v ns=%q", wait, ns)
		}
	}
	assert.Equal(t, 0, s.Pending())
}

func TestStore_Flush(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Set("a", 1, store.WithWait())
	require.NoError(t, err)
	_, err = s.Set("b", 1, store.WithNamespace("ns"), store.WithWait())
	require.NoError(t, err)

	require.NoError(t, s.Flush())

	results, err := s.List(store.WithWait())
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.List(store.WithNamespace("ns"), store.WithWait())
	require.NoError(t, err)
	assert.Empty(t, results)
}

// --------------------------------------------------------------------------
// Write Queue
// --------------------------------------------------------------------------

func TestStore_Async_Returns_Queued_Result(t *testing.T) {
	s := openTestStore(t)

	res, err := s.Set("k", 1)
	require.NoError(t, err)
	assert.Equal(t, store.Result{Action: store.ActionSet, Queued: true}, res)

	res, err = s.Set("k", 1, store.WithPrevNode(&store.Record{Version: 1}))
	require.NoError(t, err)
	assert.Equal(t, store.ActionCompareAndSwap, res.Action)
	assert.True(t, res.Queued)

	res, err = s.Delete("k")
	require.NoError(t, err)
	assert.Equal(t, store.Result{Action: store.ActionDelete, Queued: true}, res)
}

func TestStore_Async_Mutations_Applied_In_Order(t *testing.T) {
	s := openTestStore(t)

	const n = 50
	for i := 0; i < n; i++ {
		_, err := s.Set("counter", i)
		require.NoError(t, err)
	}

	res, err := s.Get("counter", store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, uint64(n), res.Node.Version)
	assert.Equal(t, float64(n-1), jsonValue(t, res.Node))
	assert.Equal(t, 0, s.Pending())
}

func TestStore_Async_Errors_Are_Discarded(t *testing.T) {
	var reported []error
	var mu sync.Mutex
	s := openTestStore(t, func(c *common.StoreConfig) {
		c.OnError = func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		}
	})

	_, err := s.Delete("absent")
	require.NoError(t, err)
	_, err = s.Set("k", 1, store.WithPrevNode(&store.Record{Version: 5}))
	require.NoError(t, err)
	_, err = s.Set("k", "after")
	require.NoError(t, err)

	// the writer keeps going after discarded errors
	res, err := s.Get("k", store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, "after", jsonValue(t, res.Node))

	var buf bytes.Buffer
	s.WriteMetrics(&buf)
	assert.Contains(t, buf.String(), `fkv_queue_discarded_total{reason="not_found"} 1`)
	assert.Contains(t, buf.String(), `fkv_queue_discarded_total{reason="version_conflict"} 1`)

	mu.Lock()
	assert.Empty(t, reported)
	mu.Unlock()
}

func TestStore_Unexpected_Queue_Errors_Are_Reported(t *testing.T) {
	reported := make(chan error, 4)
	s := openTestStore(t, func(c *common.StoreConfig) {
		c.OnError = func(err error) { reported <- err }
	})

	require.NoError(t, os.WriteFile(s.Path(), []byte("not a document"), 0o644))

	_, err := s.Set("k", 1)
	require.NoError(t, err)

	select {
	case err := <-reported:
		assert.ErrorIs(t, err, db.ErrDecode)
	case <-time.After(2 * time.Second):
		t.Fatal("error of queued mutation was not reported")
	}

	// the writer survives and keeps applying mutations
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"_namespaces":{}}`), 0o644))
	_, err = s.Set("k", 2)
	require.NoError(t, err)

	res, err := s.Get("k", store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, float64(2), jsonValue(t, res.Node))

	var buf bytes.Buffer
	s.WriteMetrics(&buf)
	assert.Contains(t, buf.String(), "fkv_queue_errors_total 1")
}

func TestStore_Panicking_Error_Hook_Keeps_Writer_Running(t *testing.T) {
	s := openTestStore(t, func(c *common.StoreConfig) {
		c.OnError = func(error) { panic("hook failed") }
	})

	require.NoError(t, os.WriteFile(s.Path(), []byte("not a document"), 0o644))
	_, err := s.Set("k", 1)
	require.NoError(t, err)

	// wait reads block on the writer, so a dead writer shows up as a timeout
	done := make(chan struct{})
	go func() {
		defer close(done)

		_, err := s.Get("k", store.WithWait())
		assert.ErrorIs(t, err, db.ErrDecode)

		assert.NoError(t, os.WriteFile(s.Path(), []byte(`{"_namespaces":{}}`), 0o644))
		_, err = s.Set("k", 2)
		assert.NoError(t, err)

		res, err := s.Get("k", store.WithWait())
		if assert.NoError(t, err) {
			assert.JSONEq(t, `2`, string(res.Node.Value))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer stopped after the error hook panicked")
	}

	var buf bytes.Buffer
	s.WriteMetrics(&buf)
	assert.Contains(t, buf.String(), "fkv_queue_errors_total 1")
}

func TestStore_Sync_Writes_Bypass_Queue(t *testing.T) {
	s := openTestStore(t)

	// nobody reads the reply yet, so the writer blocks on this operation
	reply := make(chan opResult)
	require.True(t, s.queue.Push(&operation{
		cmd:   &internal.Command{Type: internal.CommandTSet, Key: "blocker", Value: json.RawMessage(`1`)},
		reply: reply,
	}))

	_, err := s.Set("k", "queued")
	require.NoError(t, err)

	res, err := s.Set("k", "sync", store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Node.Version)
	assert.Nil(t, res.PrevNode)

	r := <-reply
	require.NoError(t, r.err)

	// the queued write lands after the sync one
	got, err := s.Get("k", store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, "queued", jsonValue(t, got.Node))
	assert.Equal(t, uint64(2), got.Node.Version)
}

func TestStore_Ordered_Sync_Writes(t *testing.T) {
	s := openTestStore(t, func(c *common.StoreConfig) {
		c.OrderedSyncWrites = true
	})

	const n = 30
	for i := 0; i < n; i++ {
		_, err := s.Set("k", i)
		require.NoError(t, err)
	}

	// ordered after all queued sets, so version n is current
	res, err := s.Set("k", "last", store.WithPrevNode(&store.Record{Version: n}), store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, uint64(n+1), res.Node.Version)

	_, err = s.Delete("k", store.WithPrevNode(&store.Record{Version: 1}), store.WithWait())
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

// --------------------------------------------------------------------------
// Cache
// --------------------------------------------------------------------------

func TestStore_Cache_Is_Refreshed(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Set("k", "v", store.WithWait())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		res, err := s.Get("k")
		return err == nil && res.Node.Version == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		results, err := s.List()
		return err == nil && len(results) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStore_Cache_Sees_Other_Handles(t *testing.T) {
	s := openTestStore(t)

	other, err := Open(common.StoreConfig{Path: s.Path(), RefreshInterval: time.Hour})
	require.NoError(t, err)
	defer other.Close()

	_, err = other.Set("from-other", true, store.WithWait())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := s.Get("from-other")
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStore_Refresh_Keeps_Snapshot_On_Error(t *testing.T) {
	s := openTestStore(t, func(c *common.StoreConfig) {
		c.RefreshInterval = time.Hour
	})

	_, err := s.Set("k", "v", store.WithWait())
	require.NoError(t, err)
	require.NoError(t, s.refresh())

	require.NoError(t, os.WriteFile(s.Path(), []byte("{broken"), 0o644))
	assert.ErrorIs(t, s.refresh(), db.ErrDecode)

	res, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", jsonValue(t, res.Node))

	var buf bytes.Buffer
	s.WriteMetrics(&buf)
	assert.Contains(t, buf.String(), "fkv_refresh_errors_total 1")
}

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

func TestStore_Value_Encoding(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"String", "text", `"text"`},
		{"Number", 42, `42`},
		{"Nil", nil, `null`},
		{"Struct", struct {
			A int `json:"a"`
		}{A: 1}, `{"a":1}`},
		{"RawMessage", json.RawMessage(`{"raw":true}`), `{"raw":true}`},
		{"Bytes_Holding_JSON", []byte(`[1,2,3]`), `[1,2,3]`},
		{"Bytes_Not_JSON", []byte("hi"), `"aGk="`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Set(tt.name, tt.value, store.WithWait())
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(res.Node.Value))

			got, err := s.Get(tt.name, store.WithWait())
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got.Node.Value))
		})
	}

	_, err := s.Set("bad", json.RawMessage(`{nope`), store.WithWait())
	assert.Error(t, err)
	_, err = s.Set("bad", make(chan int))
	assert.Error(t, err)
	assert.Equal(t, 0, s.Pending())
}

func TestStore_Indented_File_Keeps_Values(t *testing.T) {
	for _, indent := range []bool{false, true} {
		t.Run(fmt.Sprintf("Indent=%t", indent), func(t *testing.T) {
			s := openTestStore(t, func(c *common.StoreConfig) { c.Indent = indent })

			_, err := s.Set("k", json.RawMessage(`{"a":1,"b":[1,2]}`), store.WithWait())
			require.NoError(t, err)
			_, err = s.Set("spaced", json.RawMessage("{ \"a\" :\n 1 }"), store.WithWait(), store.WithNamespace("ns"))
			require.NoError(t, err)

			res, err := s.Get("k", store.WithWait())
			require.NoError(t, err)
			assert.Equal(t, `{"a":1,"b":[1,2]}`, string(res.Node.Value))

			res, err = s.Get("spaced", store.WithWait(), store.WithNamespace("ns"))
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(res.Node.Value))

			// the cache is decoded by the same codec
			require.Eventually(t, func() bool {
				res, err := s.Get("k")
				return err == nil && string(res.Node.Value) == `{"a":1,"b":[1,2]}`
			}, 2*time.Second, 5*time.Millisecond)

			list, err := s.List(store.WithWait(), store.WithNamespace("ns"))
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, `{"a":1}`, string(list[0].Node.Value))
		})
	}
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func TestStore_Open(t *testing.T) {
	t.Run("Defaults_Refresh_Interval", func(t *testing.T) {
		s, err := Open(common.StoreConfig{Path: filepath.Join(t.TempDir(), "a", "b.json")})
		require.NoError(t, err)
		defer s.Close()
		assert.Equal(t, common.DefaultRefreshInterval, s.conf.RefreshInterval)
	})

	t.Run("Empty_Path", func(t *testing.T) {
		_, err := Open(common.StoreConfig{})
		assert.Error(t, err)
	})

	t.Run("Invalid_File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
		_, err := Open(common.StoreConfig{Path: path})
		assert.ErrorIs(t, err, db.ErrDecode)
	})

	t.Run("Existing_Data", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"_namespaces":{},"k":{"v":7,"i":3}}`), 0o644))

		s, err := Open(common.StoreConfig{Path: path})
		require.NoError(t, err)
		defer s.Close()

		// the cache is seeded on open
		res, err := s.Get("k")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), res.Node.Version)
	})
}

func TestStore_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(common.StoreConfig{Path: path})
	require.NoError(t, err)

	const n = 100
	for i := 0; i < n; i++ {
		_, err := s.Set(fmt.Sprintf("k%03d", i), i)
		require.NoError(t, err)
	}

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Get("k000")
	assert.ErrorIs(t, err, store.ErrClosed)
	_, err = s.List()
	assert.ErrorIs(t, err, store.ErrClosed)
	_, err = s.Set("k", 1)
	assert.ErrorIs(t, err, store.ErrClosed)
	_, err = s.Delete("k", store.WithWait())
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, s.Flush(), store.ErrClosed)
	assert.ErrorIs(t, s.Backup(path+".bak"), store.ErrClosed)

	// everything queued before close was applied
	reopened, err := Open(common.StoreConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.List(store.WithWait())
	require.NoError(t, err)
	assert.Len(t, results, n)
}

func TestStore_Backup_Restore(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Set("a", 1, store.WithWait())
	require.NoError(t, err)
	_, err = s.Set("b", 2, store.WithNamespace("ns"), store.WithWait())
	require.NoError(t, err)

	backup := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, s.Backup(backup))

	require.NoError(t, s.Flush())
	require.NoError(t, s.Restore(backup))

	res, err := s.Get("b", store.WithNamespace("ns"), store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, float64(2), jsonValue(t, res.Node))

	assert.ErrorIs(t, s.Restore(filepath.Join(t.TempDir(), "missing.json")), os.ErrNotExist)
}

// --------------------------------------------------------------------------
// Concurrency
// --------------------------------------------------------------------------

func TestStore_Concurrent_Compare_And_Swap(t *testing.T) {
	s := openTestStore(t)
	other, err := Open(common.StoreConfig{Path: s.Path(), RefreshInterval: time.Hour})
	require.NoError(t, err)
	defer other.Close()

	_, err = s.Set("counter", 0, store.WithWait())
	require.NoError(t, err)

	const workers = 6
	const increments = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(st store.IStore) {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				for {
					cur, err := st.Get("counter", store.WithWait())
					if !assert.NoError(t, err) {
						return
					}
					var n int
					_ = cur.Node.Decode(&n)

					_, err = st.Set("counter", n+1, store.WithPrevNode(cur.Node), store.WithWait())
					if err == nil {
						break
					}
					if !errors.Is(err, store.ErrVersionConflict) {
						t.Errorf("unexpected error: %v", err)
						return
					}
				}
			}
		}([]store.IStore{s, other}[w%2])
	}
	wg.Wait()

	res, err := s.Get("counter", store.WithWait())
	require.NoError(t, err)
	assert.Equal(t, float64(workers*increments), jsonValue(t, res.Node))
	assert.Equal(t, uint64(workers*increments+1), res.Node.Version)
}

func TestStore_Concurrent_Async_Writers(t *testing.T) {
	s := openTestStore(t)

	const producers = 8
	const perProducer = 25

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_, err := s.Set(fmt.Sprintf("p%d", p), i, store.WithNamespace("producers"))
				assert.NoError(t, err)
			}
		}(p)
	}
	wg.Wait()

	results, err := s.List(store.WithNamespace("producers"), store.WithWait())
	require.NoError(t, err)
	require.Len(t, results, producers)
	for _, r := range results {
		// per producer order is kept, so the last write wins
		assert.Equal(t, uint64(perProducer), r.Node.Version)
		assert.Equal(t, float64(perProducer-1), jsonValue(t, r.Node))
	}
}
