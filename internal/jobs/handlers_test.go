package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/backend/internal/ingest"
	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
)

type recordingImporter struct {
	urls     []string
	payloads [][]byte
}

func (r *recordingImporter) ImportFromURL(_ context.Context, _ uuid.UUID, source string) (*ingest.Report, error) {
	r.urls = append(r.urls, source)
	return &ingest.Report{Goods: 1}, nil
}

func (r *recordingImporter) ImportBytes(_ context.Context, _ uuid.UUID, data []byte) (*ingest.Report, error) {
	r.payloads = append(r.payloads, data)
	return &ingest.Report{Goods: 1}, nil
}

func importJob(t *testing.T, payload any) *models.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	submitter := uuid.New()
	return &models.Job{Payload: raw, SubmitterID: &submitter}
}

func TestImportHandlerFetchesByURL(t *testing.T) {
	importer := &recordingImporter{}
	handler := importHandler(importer)

	_, err := handler(context.Background(), importJob(t, map[string]string{
		"url": "https://partner.example.com/feed.json",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://partner.example.com/feed.json"}, importer.urls)
	assert.Empty(t, importer.payloads)
}

func TestImportHandlerAppliesInlineContent(t *testing.T) {
	importer := &recordingImporter{}
	handler := importHandler(importer)

	_, err := handler(context.Background(), importJob(t, map[string]string{
		"content": `{"shop":"Svyaznoy","categories":[],"goods":[]}`,
	}))
	require.NoError(t, err)
	assert.Empty(t, importer.urls)
	require.Len(t, importer.payloads, 1)
	assert.JSONEq(t, `{"shop":"Svyaznoy","categories":[],"goods":[]}`, string(importer.payloads[0]))
}

func TestImportHandlerRejectsEmptyPayload(t *testing.T) {
	handler := importHandler(&recordingImporter{})

	_, err := handler(context.Background(), importJob(t, map[string]string{}))
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
