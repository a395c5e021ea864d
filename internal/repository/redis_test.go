package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepositoryReplacesList(t *testing.T) {
	db, mock := redismock.NewClientMock()

	records := sampleRecords()
	first, err := json.Marshal(records[0])
	require.NoError(t, err)
	second, err := json.Marshal(records[1])
	require.NoError(t, err)

	mock.ExpectTxPipeline()
	mock.ExpectDel("catalog:records:out.csv").SetVal(1)
	mock.ExpectRPush("catalog:records:out.csv", string(first), string(second)).SetVal(2)
	mock.ExpectTxPipelineExec()

	repo := NewRedisRecordRepository(db, "catalog:records:")
	require.NoError(t, repo.SaveRecords(context.Background(), "out.csv", records))
	require.NoError(t, mock.ExpectationsWereMet())
}
