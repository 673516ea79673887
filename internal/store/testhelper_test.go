package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/stretchr/testify/require"
)

// note is a record used to exercise every index of collection_requests.
type note struct {
	ID           string `json:"id"`
	CollectionID string `json:"collectionId"`
	Title        string `json:"title"`
	Timestamp    int64  `json:"timestamp"`
}

func (n note) RecordID() string { return n.ID }

func (n note) IndexKey(idx Index) any {
	switch idx {
	case ByTimestamp:
		return n.Timestamp
	case ByCollectionID:
		return n.CollectionID
	default:
		return nil
	}
}

// setupTestStore opens a store backed by a file in a per-test directory.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "restbench.db")
	s, err := Open(context.Background(), path, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, s.Close)

	return s, path
}
