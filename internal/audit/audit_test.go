package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/stagelive/queue-service/pkg/log"
)

func capturedCtx(buf *bytes.Buffer) context.Context {
	return log.WithLogger(context.Background(), zerolog.New(buf))
}

func TestLogEmitsAuditRecord(t *testing.T) {
	var buf bytes.Buffer

	Log(capturedCtx(&buf), ActionCallUp, "audition", "user-a", "user called up")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, log.LogTypeAudit, record[log.FieldLogType])
	require.Equal(t, ActionCallUp, record[FieldAction])
	require.Equal(t, "audition", record[log.FieldRoomID])
	require.Equal(t, "user-a", record[log.FieldUserID])
	require.Equal(t, "user called up", record["message"])
}

func TestLogWithDetailCarriesDetail(t *testing.T) {
	var buf bytes.Buffer

	LogWithDetail(capturedCtx(&buf), ActionRemove, "audition", "user-a",
		"forced removal", "user removed from queue")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, log.LogTypeAudit, record[log.FieldLogType])
	require.Equal(t, ActionRemove, record[FieldAction])
	require.Equal(t, "forced removal", record[FieldDetail])
}
